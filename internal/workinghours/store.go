package workinghours

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"roombooking-service/internal/calendar"
)

// Store persists one WorkingHours rule per room address.
type Store interface {
	// Load returns the whole mapping, keyed by lower-cased room address.
	Load(ctx context.Context) (map[string]calendar.WorkingHours, error)
	// Get returns nil when the room has no stored rule.
	Get(ctx context.Context, roomAddress string) (*calendar.WorkingHours, error)
	Save(ctx context.Context, roomAddress string, rule calendar.WorkingHours) error
}

func storeKey(roomAddress string) string {
	return strings.ToLower(strings.TrimSpace(roomAddress))
}

// FileStore keeps the mapping in one JSON document. Save rewrites the whole
// document; a mutex serializes the load-modify-write cycle and the new
// content replaces the old file by rename.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(ctx context.Context) (map[string]calendar.WorkingHours, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) Get(ctx context.Context, roomAddress string) (*calendar.WorkingHours, error) {
	all, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	rule, ok := all[storeKey(roomAddress)]
	if !ok {
		return nil, nil
	}
	return &rule, nil
}

func (s *FileStore) Save(ctx context.Context, roomAddress string, rule calendar.WorkingHours) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return err
	}
	all[storeKey(roomAddress)] = rule

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("working hours: encode: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".working-hours-*.json")
	if err != nil {
		return fmt.Errorf("working hours: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("working hours: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("working hours: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("working hours: replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) loadLocked() (map[string]calendar.WorkingHours, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]calendar.WorkingHours{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("working hours: read %s: %w", s.path, err)
	}
	raw := map[string]calendar.WorkingHours{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("working hours: decode %s: %w", s.path, err)
		}
	}
	all := make(map[string]calendar.WorkingHours, len(raw))
	for k, v := range raw {
		all[storeKey(k)] = v
	}
	return all, nil
}
