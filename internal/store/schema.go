// Package store persists sweep runs, trials and points in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    config TEXT,   -- YAML
    trials INTEGER DEFAULT 0,
    failed INTEGER DEFAULT 0,
    error TEXT
);

CREATE TABLE IF NOT EXISTS trials (
    run_id TEXT NOT NULL,
    modality TEXT NOT NULL,
    protocol TEXT NOT NULL,
    nodes INTEGER NOT NULL,
    trial INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    error_pct REAL,
    delay_ms REAL,
    jitter_ms REAL,
    failed INTEGER DEFAULT 0,
    error TEXT,
    duration_ms REAL,
    ts TEXT NOT NULL,
    PRIMARY KEY (run_id, modality, protocol, nodes, trial)
);
CREATE INDEX IF NOT EXISTS idx_trials_run ON trials(run_id);

CREATE TABLE IF NOT EXISTS points (
    run_id TEXT NOT NULL,
    modality TEXT NOT NULL,
    protocol TEXT NOT NULL,
    metric TEXT NOT NULL,
    nodes INTEGER NOT NULL,
    count INTEGER NOT NULL,
    mean REAL,
    variance REAL,
    half_width REAL,
    ts TEXT NOT NULL,
    PRIMARY KEY (run_id, modality, protocol, metric, nodes)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the tables if needed and records the schema version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	var version int
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported %d", version, SchemaVersion)
	}
	if version < SchemaVersion {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`, SchemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
	}
	return nil
}
