// Package sqlite persists the event collection in a SQLite key-value table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/outage-tracker/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Store keeps the serialized collection in one row of the kv table.
type Store struct {
	db  *sql.DB
	key string
}

// Open creates or opens the database at dbPath and prepares the schema.
// Use ":memory:" for a throwaway database.
func Open(dbPath, key string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer; one connection keeps every statement
	// on the same handle, which an in-memory database also requires.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, key: key}, nil
}

// Load returns the stored collection. A missing row is an empty collection.
func (s *Store) Load(ctx context.Context) ([]domain.Event, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return []domain.Event{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events, err := domain.DecodeEvents([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", s.key, err)
	}
	return events, nil
}

// Save replaces the stored collection in a single statement.
func (s *Store) Save(ctx context.Context, events []domain.Event) error {
	data, err := domain.EncodeEvents(events)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
