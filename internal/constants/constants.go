// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".pgprof"

	// DefaultReportsDir holds rendered report artifacts, relative to the config dir.
	DefaultReportsDir = "reports"

	// DefaultIndexFile is the DuckDB index of stored reports.
	DefaultIndexFile = "reports.duckdb"

	DefaultRedisKeyPrefix = "pgprof:session:"
)
