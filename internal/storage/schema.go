// Package storage persists extraction runs: a SQLite record store and the
// CSV hand-off table.
package storage

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is bumped whenever the DDL below changes.
const SchemaVersion = 1

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	root_path TEXT NOT NULL,
	placeholder TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	files_total INTEGER NOT NULL DEFAULT 0,
	files_failed INTEGER NOT NULL DEFAULT 0,
	records_total INTEGER NOT NULL DEFAULT 0,
	records_resolved INTEGER NOT NULL DEFAULT 0
)`

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	run_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	file_hash TEXT NOT NULL,
	error TEXT,
	PRIMARY KEY (run_id, file_path),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
)`

const createLogRecordsTable = `
CREATE TABLE IF NOT EXISTS log_records (
	record_id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line_number INTEGER NOT NULL,
	log_level TEXT NOT NULL,
	log_message TEXT NOT NULL,
	resolved INTEGER NOT NULL,
	FOREIGN KEY (run_id, file_path) REFERENCES files(run_id, file_path) ON DELETE CASCADE
)`

const createDiagnosticsTable = `
CREATE TABLE IF NOT EXISTS diagnostics (
	diagnostic_id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line_number INTEGER NOT NULL,
	reason TEXT NOT NULL,
	FOREIGN KEY (run_id, file_path) REFERENCES files(run_id, file_path) ON DELETE CASCADE
)`

const createMetadataTable = `
CREATE TABLE IF NOT EXISTS schema_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_log_records_run ON log_records(run_id, file_path, line_number)",
	"CREATE INDEX IF NOT EXISTS idx_log_records_level ON log_records(log_level)",
	"CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics(run_id, file_path)",
	"CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)",
}

// Open opens (creating if needed) a SQLite database at path with foreign
// keys enabled and the schema in place. ":memory:" is accepted.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// One connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// CreateSchema creates all tables and indexes. It is idempotent.
// Must be called with SQLite PRAGMA foreign_keys = ON.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"runs", createRunsTable},
		{"files", createFilesTable},
		{"log_records", createLogRecordsTable},
		{"diagnostics", createDiagnosticsTable},
		{"schema_metadata", createMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", table.name, err)
		}
	}

	for i, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index %d: %w", i+1, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO schema_metadata (key, value) VALUES ('schema_version', ?)",
		fmt.Sprint(SchemaVersion),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// GetSchemaVersion returns the recorded schema version, or 0 when the
// schema has not been created.
func GetSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT CAST(value AS INTEGER) FROM schema_metadata WHERE key = 'schema_version'").Scan(&version)
	if err != nil {
		if err == sql.ErrNoRows || isMissingTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
