// Package store is the sqlite-backed persistence for memories, goals,
// relationships, accounts, rooms and the audit log.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cojourney/cjagent/internal/audit"
	"github.com/cojourney/cjagent/internal/goal"
	"github.com/cojourney/cjagent/internal/memory"
)

var (
	_ memory.Store = (*Store)(nil)
	_ goal.Store   = (*Store)(nil)
	_ audit.Logger = (*Store)(nil)
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps a sqlite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = "file::memory:?_pragma=foreign_keys(1)"
	} else if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	// Best-effort migrations for databases created before these columns existed.
	_, _ = db.Exec(`ALTER TABLE accounts ADD COLUMN avatar_url TEXT NOT NULL DEFAULT ''`)
	_, _ = db.Exec(`ALTER TABLE relationships ADD COLUMN room_id TEXT NOT NULL DEFAULT ''`)

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func toUnix(t time.Time) int64 { return t.UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }
