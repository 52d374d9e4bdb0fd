// Package plprofiler talks to a PostgreSQL server with the plprofiler
// extension over pgx.
//
// It provides the report.SampleReader over the extension's local and shared
// data sets, the engine's enable/reset controls, routine introspection and
// execution for direct profiling, and a connection pool whose checked-out
// connections are addressable by opaque refs for session teardown.
//
// Local-scope data lives in the backend that ran the routine, so direct
// profiling must issue the controls, the execution and the reads on one
// connection.
package plprofiler
