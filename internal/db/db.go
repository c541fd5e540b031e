// Package db stores the history of calibration runs in sqlite. The schema is
// owned by the embedded golang-migrate migrations.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/calibration.report/internal/monitoring"
	"github.com/banshee-data/calibration.report/internal/timeutil"
)

// DefaultPath is the history database used when none is given.
const DefaultPath = "calibration.db"

type DB struct {
	*sql.DB

	clock timeutil.Clock
	log   *monitoring.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithClock sets the clock used to stamp runs.
func WithClock(c timeutil.Clock) Option {
	return func(db *DB) { db.clock = c }
}

// WithLogger sets the logger used for migration and store messages.
func WithLogger(l *monitoring.Logger) Option {
	return func(db *DB) { db.log = l }
}

// OpenDB opens the database without touching the schema. The migrate
// subcommand uses it so migrations stay in control.
func OpenDB(path string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := applyPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db := &DB{DB: sqlDB, clock: timeutil.RealClock{}, log: monitoring.Discard()}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// NewDB opens the database and applies every pending migration.
func NewDB(path string, opts ...Option) (*DB, error) {
	db, err := OpenDB(path, opts...)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// dsn adds the per-connection pragmas so every pooled connection gets them.
func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
