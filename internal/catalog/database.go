// Package catalog records scanned Ogg/Opus files in a SQLite database.
package catalog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// NewDatabase opens the SQLite database at dbPath and applies the schema.
// The pool holds a single connection: SQLite serializes writers anyway, and
// an in-memory database exists only on the connection that created it.
func NewDatabase(dbPath string) (*sql.DB, error) {
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA user_version = 1",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return db, nil
}

func ensureSchema(db *sql.DB) error {
	schema := `
-- One row per scan run
CREATE TABLE IF NOT EXISTS scans (
    id          TEXT    PRIMARY KEY,
    root        TEXT    NOT NULL,
    started_at  INTEGER NOT NULL,
    finished_at INTEGER,
    file_count  INTEGER NOT NULL DEFAULT 0,
    failures    INTEGER NOT NULL DEFAULT 0
);

-- Files seen by a scan; error is set when the file could not be opened
CREATE TABLE IF NOT EXISTS files (
    id          INTEGER PRIMARY KEY,
    scan_id     TEXT    NOT NULL REFERENCES scans(id) ON DELETE CASCADE,
    path        TEXT    NOT NULL,
    mime        TEXT    NOT NULL,
    size        INTEGER NOT NULL,
    seekable    INTEGER NOT NULL CHECK (seekable IN (0,1)),
    link_count  INTEGER NOT NULL,
    pcm_total   INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    title       TEXT,
    artist      TEXT,
    album       TEXT,
    pictures    INTEGER NOT NULL DEFAULT 0,
    error       TEXT,
    scanned_at  INTEGER NOT NULL,
    UNIQUE(scan_id, path)
);

-- Per-link stream parameters
CREATE TABLE IF NOT EXISTS links (
    id          INTEGER PRIMARY KEY,
    file_id     INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    link_index  INTEGER NOT NULL CHECK (link_index >= 0),
    serialno    INTEGER NOT NULL,
    channels    INTEGER NOT NULL,
    input_rate  INTEGER NOT NULL,
    pcm_total   INTEGER NOT NULL,
    bitrate     INTEGER NOT NULL,
    vendor      TEXT    NOT NULL,
    UNIQUE(file_id, link_index)
);

CREATE INDEX IF NOT EXISTS idx_files_scanned ON files(scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_files_artist ON files(artist);
CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
CREATE INDEX IF NOT EXISTS idx_files_failed ON files(path) WHERE error IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_links_file ON links(file_id);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}
