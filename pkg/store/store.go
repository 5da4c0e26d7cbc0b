// Package store keeps charts, their column data and the derived stacked
// rows in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the "sqlite" driver.
)

// ErrNotFound is returned when a chart lookup matches nothing.
var ErrNotFound = errors.New("not found")

const (
	driverName = "sqlite"
	dirPerm    = 0o755

	// dsnPragmas apply to every pooled connection.
	dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
)

const schema = `
CREATE TABLE IF NOT EXISTS charts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL DEFAULT '',
	published INTEGER NOT NULL DEFAULT 0,
	uniform_spacing INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS chart_series (
	chart_id INTEGER NOT NULL REFERENCES charts(id) ON DELETE CASCADE,
	ord INTEGER NOT NULL,
	entity TEXT NOT NULL,
	column_slug TEXT NOT NULL,
	color TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (chart_id, ord)
);
CREATE INDEX IF NOT EXISTS idx_chart_series_column ON chart_series(column_slug);

CREATE TABLE IF NOT EXISTS column_points (
	column_slug TEXT NOT NULL,
	entity TEXT NOT NULL,
	position REAL NOT NULL,
	value REAL NOT NULL,
	PRIMARY KEY (column_slug, entity, position)
);

CREATE TABLE IF NOT EXISTS chart_stacks (
	chart_id INTEGER NOT NULL,
	series_name TEXT NOT NULL,
	position REAL NOT NULL,
	value REAL NOT NULL,
	value_offset REAL NOT NULL,
	missing INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_chart_stacks_chart ON chart_stacks(chart_id);
`

// Store is a SQLite-backed chart store. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(ctx context.Context, path string) (*Store, error) {
	err := os.MkdirAll(filepath.Dir(path), dirPerm)
	if err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open(driverName, path+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}

	st := &Store{db: db, path: path}

	err = st.Migrate(ctx)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return st, nil
}

// Migrate creates missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("ping store: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("close store: %w", err)
	}

	return nil
}
