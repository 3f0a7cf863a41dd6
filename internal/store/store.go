// Package store is the SQLite persistence behind the server: the read side
// of notes and todos, intents, and the server-side digest cache.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// timeLayout sorts lexically in time order; all times are stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	log.Debug().Str("path", path).Msg("store opened")
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`PRAGMA busy_timeout = 5000`,

		`CREATE TABLE IF NOT EXISTS notes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			folder TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			summary TEXT NOT NULL DEFAULT '',
			key_points TEXT NOT NULL DEFAULT '[]',
			transcription TEXT NOT NULL DEFAULT '',
			smartified_text TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_user_created ON notes(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notes_user_folder ON notes(user_id, folder)`,

		`CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			note_id TEXT,
			title TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_user ON todos(user_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS intents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			raw_text TEXT NOT NULL,
			normalized_intent TEXT NOT NULL DEFAULT '',
			intent_type TEXT NOT NULL DEFAULT 'remember',
			source_type TEXT NOT NULL DEFAULT 'chat',
			source_id TEXT NOT NULL DEFAULT '',
			source_title TEXT NOT NULL DEFAULT '',
			context_scope TEXT NOT NULL DEFAULT 'global',
			context_value TEXT NOT NULL DEFAULT '',
			folder TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intents_user_status ON intents(user_id, status, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS synthesis_cache (
			user_id TEXT NOT NULL,
			scope_type TEXT NOT NULL,
			scope_value TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL,
			synthesis TEXT NOT NULL,
			note_count INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, scope_type, scope_value)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
