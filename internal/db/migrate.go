package db

import (
	"context"
	"database/sql"
	"fmt"
)

// All contains the ordered list of migrations to apply.
var All = []string{
	`CREATE TABLE runs (
		id          TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		success     INTEGER NOT NULL
	)`,
	`CREATE TABLE feature_results (
		id          INTEGER PRIMARY KEY,
		run_id      TEXT NOT NULL REFERENCES runs(id),
		title       TEXT NOT NULL,
		file_path   TEXT NOT NULL,
		skip_reason TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		success     INTEGER NOT NULL
	)`,
	`CREATE TABLE scenario_results (
		id                INTEGER PRIMARY KEY,
		feature_result_id INTEGER NOT NULL REFERENCES feature_results(id),
		title             TEXT NOT NULL,
		status            TEXT NOT NULL,
		error_kind        TEXT NOT NULL DEFAULT '',
		step              TEXT NOT NULL DEFAULT '',
		message           TEXT NOT NULL DEFAULT '',
		evidence          TEXT NOT NULL DEFAULT '',
		duration_ms       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX runs_started_at ON runs(started_at)`,
}

func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_version`).Scan(&count); err != nil {
		return fmt.Errorf("checking schema_version: %w", err)
	}
	if count == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("initializing schema version: %w", err)
		}
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if current > len(All) {
		return fmt.Errorf("history schema version %d is newer than this binary (%d)", current, len(All))
	}

	for i := current; i < len(All); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}

		if _, err := tx.ExecContext(ctx, All[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET version = ?`, i+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("updating schema version to %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
	}

	return nil
}
