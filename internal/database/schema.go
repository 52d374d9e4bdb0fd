package database

import (
	"fmt"
)

const (
	savedReportsTable      = "saved_reports"
	savedReportsSequence   = "saved_reports_id_seq"
	functionArgumentsTable = "function_arguments"
)

// initSchema creates the tables idempotently inside one transaction.
func (d *Database) initSchema() error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ddl := range schemaDDL {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

var schemaDDL = []string{
	`CREATE SEQUENCE IF NOT EXISTS ` + savedReportsSequence + ` START 1`,

	// One row per rendered artifact. storage_path is unique so two reports
	// can never share a file.
	`CREATE TABLE IF NOT EXISTS ` + savedReportsTable + ` (
		report_id BIGINT PRIMARY KEY,
		display_name TEXT NOT NULL,
		is_direct BOOLEAN NOT NULL,
		database_name TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		duration_seconds DOUBLE NOT NULL,
		storage_path TEXT NOT NULL UNIQUE,
		format TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		checksum TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_saved_reports_created_at ON ` + savedReportsTable + `(created_at)`,

	// Last argument values entered for a routine, keyed by catalog oids.
	`CREATE TABLE IF NOT EXISTS ` + functionArgumentsTable + ` (
		server_id TEXT NOT NULL,
		database_id BIGINT NOT NULL,
		schema_id BIGINT NOT NULL,
		function_id BIGINT NOT NULL,
		arg_id BIGINT NOT NULL,
		is_null BOOLEAN NOT NULL,
		is_expression BOOLEAN NOT NULL,
		use_default BOOLEAN NOT NULL,
		value TEXT,
		PRIMARY KEY (server_id, database_id, schema_id, function_id, arg_id)
	)`,
}
