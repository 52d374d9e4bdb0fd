// Package database is the DuckDB index behind the report store. It records
// one row per stored report artifact and the last argument values a user
// entered for each routine.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bigsql/pgadmin4/internal/duckdb"
)

// Database wraps the index connection.
type Database struct {
	db       *sql.DB
	path     string
	readOnly bool
	logger   zerolog.Logger

	reports   *duckdb.Table[SavedReport]
	arguments *duckdb.Table[SavedArgument]
}

// New opens the index at path read-write, creating the file and the schema
// when missing. An empty path opens a throwaway in-memory index.
func New(path string, logger zerolog.Logger) (*Database, error) {
	return open(path, logger, false)
}

// NewReadOnly opens an existing index without taking the writer lock, so
// listing and showing reports works while another process saves.
func NewReadOnly(path string, logger zerolog.Logger) (*Database, error) {
	return open(path, logger, true)
}

func open(path string, logger zerolog.Logger, readOnly bool) (*Database, error) {
	db, err := duckdb.OpenDB(path, duckdb.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to open report index: %w", err)
	}

	d := &Database{
		db:        db,
		path:      path,
		readOnly:  readOnly,
		logger:    logger.With().Str("component", "report_index").Logger(),
		reports:   duckdb.NewTable[SavedReport](db, savedReportsTable),
		arguments: duckdb.NewTable[SavedArgument](db, functionArgumentsTable),
	}

	if !readOnly {
		if err := d.initSchema(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	mode := "read-write"
	if readOnly {
		mode = "read-only"
	}
	d.logger.Debug().
		Str("path", path).
		Str("mode", mode).
		Msg("Report index opened")

	return d, nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("failed to close report index: %w", err)
	}
	return nil
}

// Ping checks that the index is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// BeginTx starts a transaction for callers that pair an index write with
// other work, such as writing the artifact file.
func (d *Database) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Path is the index file path.
func (d *Database) Path() string {
	return d.path
}

// ReadOnly reports whether the index was opened without write access.
func (d *Database) ReadOnly() bool {
	return d.readOnly
}

func (d *Database) trace(query string, args ...any) {
	d.logger.Trace().Str("query", duckdb.InterpolateQuery(query, args)).Msg("index query")
}
