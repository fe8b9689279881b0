package workinghours

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"roombooking-service/internal/apperr"
	"roombooking-service/internal/calendar"
	"roombooking-service/internal/calendar/calendartest"
	"roombooking-service/internal/logging"
)

const room = "kantine@example.org"

func newTestService(t *testing.T) (*Service, *calendartest.Fake, *FileStore) {
	t.Helper()
	gw := &calendartest.Fake{}
	gw.SetPermissions(room,
		calendar.Permission{Address: "desk@example.org", Role: "write"},
		calendar.Permission{Address: "visitor@example.org", Role: "read"},
	)
	store := NewFileStore(filepath.Join(t.TempDir(), "hours.json"))
	return NewService(store, gw, logging.Discard()), gw, store
}

func TestServiceGetReturnsDefaultAndCanEdit(t *testing.T) {
	svc, _, _ := newTestService(t)
	rule, canEdit, err := svc.Get(context.Background(), room, "DESK@example.org")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !canEdit {
		t.Fatalf("expected delegate to be able to edit")
	}
	if rule.TimeZone.Name != calendar.DefaultTimeZone || len(rule.TimeSlots) != 0 {
		t.Fatalf("expected default rule, got %+v", rule)
	}

	_, canEdit, _ = svc.Get(context.Background(), room, "visitor@example.org")
	if canEdit {
		t.Fatalf("expected reader not to be able to edit")
	}
}

func TestServiceGetFailsOpenOnDelegateLookup(t *testing.T) {
	svc, gw, _ := newTestService(t)
	gw.PermsErr = apperr.FromStatus("list permissions", 503, "")
	_, canEdit, err := svc.Get(context.Background(), room, "desk@example.org")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if canEdit {
		t.Fatalf("expected canEdit=false when the lookup fails")
	}
}

func TestServiceSet(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()
	rule := calendar.WorkingHours{TimeSlots: []calendar.TimeSlot{{DaysOfWeek: []string{"monday"}, StartTime: "09:00", EndTime: "17:00"}}}

	t.Run("non delegate is forbidden", func(t *testing.T) {
		if _, err := svc.Set(ctx, room, rule, "visitor@example.org"); !errors.Is(err, apperr.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if stored, _ := store.Get(ctx, room); stored != nil {
			t.Fatalf("expected nothing stored")
		}
	})

	t.Run("invalid rule", func(t *testing.T) {
		bad := calendar.WorkingHours{TimeSlots: []calendar.TimeSlot{{DaysOfWeek: []string{"someday"}, StartTime: "09:00", EndTime: "17:00"}}}
		var vErr *apperr.ValidationError
		if _, err := svc.Set(ctx, room, bad, "desk@example.org"); !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("delegate saves normalized rule", func(t *testing.T) {
		saved, err := svc.Set(ctx, room, rule, "desk@example.org")
		if err != nil {
			t.Fatalf("set: %v", err)
		}
		if saved.TimeSlots[0].EndTime != "17:00:00" {
			t.Fatalf("expected normalized rule, got %+v", saved)
		}
		stored, _ := store.Get(ctx, room)
		if stored == nil || stored.TimeSlots[0].StartTime != "09:00:00" {
			t.Fatalf("expected stored rule, got %+v", stored)
		}
	})
}

func TestServiceEffectivePrefersStoredRule(t *testing.T) {
	svc, gw, store := newTestService(t)
	ctx := context.Background()
	gw.SetWorkingHours(room, &calendar.WorkingHours{TimeSlots: []calendar.TimeSlot{{DaysOfWeek: []string{"friday"}, StartTime: "08:00:00", EndTime: "12:00:00"}}})

	rule, err := svc.Effective(ctx, room)
	if err != nil || rule == nil || rule.TimeSlots[0].DaysOfWeek[0] != "friday" {
		t.Fatalf("expected provider rule, got %+v, %v", rule, err)
	}

	if err := store.Save(ctx, room, sampleRule("09:00:00")); err != nil {
		t.Fatalf("save: %v", err)
	}
	rule, err = svc.Effective(ctx, room)
	if err != nil || rule == nil || rule.TimeSlots[0].DaysOfWeek[0] != "monday" {
		t.Fatalf("expected stored rule, got %+v, %v", rule, err)
	}

	if rule, err := svc.Effective(ctx, "other@example.org"); err != nil || rule != nil {
		t.Fatalf("expected no rule, got %+v, %v", rule, err)
	}
}
