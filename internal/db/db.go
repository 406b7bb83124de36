// Package db stores the history of fitted TPM models in SQLite. The schema
// is managed by golang-migrate from migrations embedded in the binary.
package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/tpm.report/internal/timeutil"
)

type DB struct {
	*sql.DB
	clock timeutil.Clock
}

// OpenDB opens the database at path without touching the schema.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := sqlDB.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	return &DB{DB: sqlDB, clock: timeutil.RealClock{}}, nil
}

// NewDB opens the database at path and applies any pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SetClock replaces the clock used to timestamp recorded runs.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}
