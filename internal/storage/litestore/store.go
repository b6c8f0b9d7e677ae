// Package litestore is a single-file SQLite backend with the same operations
// as the Postgres storage, for running IronLog without a database server.
package litestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/ironlog/internal/storage"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	login        TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	last_seen    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS exercises (
	id         TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'WEIGHT',
	notes      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS routine_groups (
	id         TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS routines (
	id         TEXT PRIMARY KEY,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	group_id   TEXT REFERENCES routine_groups(id) ON DELETE SET NULL,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS routine_exercises (
	id              TEXT PRIMARY KEY,
	routine_id      TEXT NOT NULL REFERENCES routines(id) ON DELETE CASCADE,
	exercise_id     TEXT NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	target_reps     TEXT,
	target_sets     TEXT,
	increment_value REAL
);
CREATE TABLE IF NOT EXISTS workout_logs (
	id          TEXT PRIMARY KEY,
	user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	routine_id  TEXT REFERENCES routines(id) ON DELETE SET NULL,
	name        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	is_deload   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS workout_entries (
	id          TEXT PRIMARY KEY,
	log_id      TEXT NOT NULL REFERENCES workout_logs(id) ON DELETE CASCADE,
	exercise_id TEXT NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	sets        TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS workout_entries_exercise_idx ON workout_entries (exercise_id);
`

// Store implements the IronLog repository on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database file at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database dir: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	now := formatTime(time.Now())
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO users (id, login, display_name, created_at, last_seen) VALUES (1, 'local', 'Local Dev User', ?, ?)`,
		now, now); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding dev user: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetOrCreateUser finds or creates a user by login name.
func (s *Store) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	now := formatTime(time.Now())
	var id int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (login, display_name, created_at, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = excluded.last_seen,
			    display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name)
		RETURNING id`,
		login, displayName, now, now).Scan(&id)
	return id, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return fmt.Errorf("querying %s: %w", what, err)
}

func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}
