package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	duckdbDriver "github.com/marcboeker/go-duckdb"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ""

// Options tune how a database file is opened.
type Options struct {
	// ReadOnly opens the file with access_mode=READ_ONLY, which lets several
	// processes read the index at once.
	ReadOnly bool

	// Threads caps DuckDB worker threads. Zero keeps the engine default.
	Threads int

	// BootQueries run on every new pooled connection.
	BootQueries []string
}

// OpenDB opens (creating if needed) the DuckDB database at path. The parent
// directory is created for file-backed databases.
func OpenDB(path string, opts Options) (*sql.DB, error) {
	if !isMemory(path) && !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := buildDSN(path, opts)
	connector, err := duckdbDriver.NewConnector(dsn, func(execer driver.ExecerContext) error {
		for _, query := range opts.BootQueries {
			if _, err := execer.ExecContext(context.Background(), query, nil); err != nil {
				return fmt.Errorf("boot query %q: %w", query, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb %q: %w", path, err)
	}

	db := sql.OpenDB(connector)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb %q: %w", path, err)
	}
	return db, nil
}

func isMemory(path string) bool {
	return path == MemoryDSN || path == ":memory:"
}

// buildDSN appends the option query parameters to path, keeping any the
// caller already set.
func buildDSN(path string, opts Options) string {
	base := path
	query := ""
	if sep := strings.IndexByte(path, '?'); sep >= 0 {
		base = path[:sep]
		query = path[sep+1:]
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return path
	}

	if opts.ReadOnly && !params.Has("access_mode") {
		params.Set("access_mode", "READ_ONLY")
	}
	if opts.Threads > 0 && !params.Has("threads") {
		params.Set("threads", strconv.Itoa(opts.Threads))
	}

	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}
