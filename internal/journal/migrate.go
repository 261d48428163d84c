package journal

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest schema version the journal writes.
const SchemaVersion = 1

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("journal: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("journal: read schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("journal: schema version %d is newer than supported %d", current, SchemaVersion)
	}
	if current == SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("journal: begin migration: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS captures (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			at INTEGER NOT NULL,
			kind TEXT NOT NULL,
			period TEXT NOT NULL,
			light INTEGER NULL,
			battery_v REAL NULL,
			detail TEXT NOT NULL DEFAULT ''
		);
	`)
	if err != nil {
		return fmt.Errorf("journal: create captures: %w", err)
	}
	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_captures_at ON captures(at);`)
	if err != nil {
		return fmt.Errorf("journal: create idx_captures_at: %w", err)
	}
	_, err = tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("journal: record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("journal: commit migration: %w", err)
	}
	return nil
}
