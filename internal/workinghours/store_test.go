package workinghours

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"roombooking-service/internal/calendar"
)

func sampleRule(start string) calendar.WorkingHours {
	return calendar.WorkingHours{
		TimeZone:  calendar.TimeZone{Name: calendar.DefaultTimeZone},
		TimeSlots: []calendar.TimeSlot{{DaysOfWeek: []string{"monday"}, StartTime: start, EndTime: "17:00:00"}},
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hours.json"))
	all, err := store.Load(context.Background())
	if err != nil || len(all) != 0 {
		t.Fatalf("expected empty mapping, got %v, %v", all, err)
	}
	rule, err := store.Get(context.Background(), "kantine@example.org")
	if err != nil || rule != nil {
		t.Fatalf("expected no rule, got %+v, %v", rule, err)
	}
}

func TestFileStoreSaveAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hours.json")
	store := NewFileStore(path)
	ctx := context.Background()

	if err := store.Save(ctx, "Kantine@Example.org", sampleRule("09:00:00")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "business@example.org", sampleRule("08:00:00")); err != nil {
		t.Fatalf("save: %v", err)
	}

	rule, err := store.Get(ctx, "kantine@example.org")
	if err != nil || rule == nil || rule.TimeSlots[0].StartTime != "09:00:00" {
		t.Fatalf("expected stored rule, got %+v, %v", rule, err)
	}

	reopened := NewFileStore(path)
	all, err := reopened.Load(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected both rooms persisted, got %v, %v", all, err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}

func TestFileStoreConcurrentSavesKeepEveryRoom(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "hours.json"))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.Save(ctx, fmt.Sprintf("room-%d@example.org", i), sampleRule("09:00:00")); err != nil {
				t.Errorf("save %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	all, err := store.Load(ctx)
	if err != nil || len(all) != 20 {
		t.Fatalf("expected 20 rooms, got %d, %v", len(all), err)
	}
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hours.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	room := "pg-test-room@example.org"
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM room_working_hours WHERE room_address=$1`, room)
	})

	if rule, err := store.Get(ctx, room); err != nil || rule != nil {
		t.Fatalf("expected no rule, got %+v, %v", rule, err)
	}
	if err := store.Save(ctx, room, sampleRule("09:00:00")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, room, sampleRule("10:00:00")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rule, err := store.Get(ctx, "PG-TEST-ROOM@example.org")
	if err != nil || rule == nil || rule.TimeSlots[0].StartTime != "10:00:00" {
		t.Fatalf("expected upserted rule, got %+v, %v", rule, err)
	}
	all, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := all[room]; !ok {
		t.Fatalf("expected room in full mapping")
	}
}
