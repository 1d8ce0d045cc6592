// Package db manages the database connection
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single connection keeps per-connection pragmas in effect and
	// serializes writers.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createSamplesTable(); err != nil {
		return err
	}
	return db.createDailyStatsTable()
}

// samples.ts holds fractional Unix seconds so SQLite's date(ts, 'unixepoch')
// maps each sample to its UTC calendar day.
func (db *DB) createSamplesTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS samples (
		ts  REAL NOT NULL,
		key TEXT NOT NULL,
		pct INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_samples_key_ts ON samples(key, ts);
	CREATE INDEX IF NOT EXISTS idx_samples_ts ON samples(ts);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createDailyStatsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS daily_stats (
		date       TEXT NOT NULL,
		key        TEXT NOT NULL,
		peak_pct   INTEGER NOT NULL,
		avg_pct    INTEGER NOT NULL,
		limit_hits INTEGER NOT NULL DEFAULT 0,
		samples    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, key)
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
