package report

import "context"

// RankedRoutine is a routine with its aggregate self time.
type RankedRoutine struct {
	OID      uint32
	SelfTime int64
}

// LineStat is one per-line sample row.
type LineStat struct {
	OID         uint32
	LineNumber  int
	ExecCount   int64
	TotalTime   int64
	LongestTime int64
	Source      string
}

// RoutineInfo is the signature and self-time metadata of one routine.
type RoutineInfo struct {
	OID        uint32
	Schema     string
	Name       string
	Arguments  string
	ResultType string
	SelfTime   int64
}

// SampleReader supplies raw profiling rows for a scope.
type SampleReader interface {
	// TopSelfTime returns at most limit routines, ranked by descending self time.
	TopSelfTime(ctx context.Context, scope Scope, limit int) ([]RankedRoutine, error)

	// Metadata returns schema and name for the given oids in any order.
	Metadata(ctx context.Context, oids []uint32) ([]FunctionRef, error)

	// LineStats returns every per-line row of the scope.
	LineStats(ctx context.Context, scope Scope) ([]LineStat, error)

	// Routine returns signature metadata for oid, or nil if it no longer exists.
	Routine(ctx context.Context, scope Scope, oid uint32) (*RoutineInfo, error)

	// CallGraph returns every call-graph edge of the scope.
	CallGraph(ctx context.Context, scope Scope) ([]CallGraphEdge, error)

	// OverflowFlags reads the shared buffer overflow indicators.
	OverflowFlags(ctx context.Context) (OverflowFlags, error)
}
