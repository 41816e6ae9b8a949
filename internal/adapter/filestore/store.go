// Package filestore persists the event collection as a single JSON file.
//
// The collection lives under one fixed key, which maps to one file in the
// data directory. Every save replaces the whole file through a temporary
// file and a rename, so readers never observe a partial write.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/couchcryptid/outage-tracker/internal/domain"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Store reads and writes the event collection in a JSON file.
type Store struct {
	path string
	mu   sync.Mutex
}

// New creates a Store for key inside dir. The directory is created on the
// first save.
func New(dir, key string) *Store {
	return &Store{path: filepath.Join(dir, fileName(key))}
}

// Path is the file backing the store.
func (s *Store) Path() string { return s.path }

// Load returns the stored collection. A missing file is an empty
// collection; unreadable JSON wraps domain.ErrCorruptCollection.
func (s *Store) Load(ctx context.Context) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A leftover temp file means a previous save crashed before the rename.
	_ = os.Remove(s.tempPath())

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}

	events, err := domain.DecodeEvents(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	return events, nil
}

// Save replaces the stored collection.
func (s *Store) Save(ctx context.Context, events []domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := domain.EncodeEvents(events)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), dirPermissions); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp := s.tempPath()
	if err := os.WriteFile(tmp, data, filePermissions); err != nil {
		return fmt.Errorf("write event file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename event file: %w", err)
	}
	return nil
}

func (s *Store) tempPath() string { return s.path + ".tmp" }

// CheckReadiness reports whether the data directory can be used.
func (s *Store) CheckReadiness(_ context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if errors.Is(err, fs.ErrNotExist) {
		return nil // created on first save
	}
	if err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data path %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

// fileName maps a storage key such as "@app:events" onto a safe file name.
func fileName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), "_.")
	if name == "" {
		name = "events"
	}
	return name + ".json"
}
