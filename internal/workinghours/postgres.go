package workinghours

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"roombooking-service/internal/calendar"
)

// Schema creates the table used by PostgresStore.
const Schema = `CREATE TABLE IF NOT EXISTS room_working_hours (
    room_address TEXT PRIMARY KEY,
    rule         JSONB NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps one row per room. Save is a single upsert, so writes
// are atomic per room key.
type PostgresStore struct {
	DB *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

// Migrate creates the table if it is missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("working hours: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (map[string]calendar.WorkingHours, error) {
	q := `SELECT room_address, rule FROM room_working_hours ORDER BY room_address`
	rows, err := s.DB.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("working hours: query: %w", err)
	}
	defer rows.Close()

	out := map[string]calendar.WorkingHours{}
	for rows.Next() {
		var room string
		var raw []byte
		if err := rows.Scan(&room, &raw); err != nil {
			return nil, fmt.Errorf("working hours: scan: %w", err)
		}
		var rule calendar.WorkingHours
		if err := json.Unmarshal(raw, &rule); err != nil {
			return nil, fmt.Errorf("working hours: decode rule for %s: %w", room, err)
		}
		out[room] = rule
	}
	return out, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, roomAddress string) (*calendar.WorkingHours, error) {
	q := `SELECT rule FROM room_working_hours WHERE room_address=$1`
	var raw []byte
	err := s.DB.QueryRow(ctx, q, storeKey(roomAddress)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("working hours: query %s: %w", roomAddress, err)
	}
	var rule calendar.WorkingHours
	if err := json.Unmarshal(raw, &rule); err != nil {
		return nil, fmt.Errorf("working hours: decode rule for %s: %w", roomAddress, err)
	}
	return &rule, nil
}

func (s *PostgresStore) Save(ctx context.Context, roomAddress string, rule calendar.WorkingHours) error {
	raw, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("working hours: encode: %w", err)
	}
	q := `INSERT INTO room_working_hours (room_address, rule, updated_at)
          VALUES ($1, $2, $3)
          ON CONFLICT (room_address) DO UPDATE SET rule = EXCLUDED.rule, updated_at = EXCLUDED.updated_at`
	if _, err := s.DB.Exec(ctx, q, storeKey(roomAddress), raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("working hours: save %s: %w", roomAddress, err)
	}
	return nil
}
