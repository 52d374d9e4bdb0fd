// Package duckdb holds the small DuckDB toolkit the report index is built on:
// a connector that opens database files with per-connection settings, a
// struct-tag driven table wrapper and a SELECT builder.
//
// # Table
//
// Rows are plain structs whose columns are declared with `duckdb` tags:
//
//	type savedReport struct {
//	    ID   int64  `duckdb:"report_id,pk"`
//	    Path string `duckdb:"storage_path,immutable"`
//	}
//
//	reports := duckdb.NewTable[savedReport](db, "saved_reports")
//	err := reports.WithTx(tx).Insert(ctx, &savedReport{...})
//
// # Query builder
//
//	q, args, err := duckdb.NewQueryBuilder("saved_reports").
//	    Eq("database_name", "sales").
//	    OrderBy("-created_at", "-report_id").
//	    Limit(20).
//	    Build()
//
// Empty string filters are skipped so that callers can pass optional CLI
// flags straight through.
package duckdb
