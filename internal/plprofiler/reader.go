package plprofiler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigsql/pgadmin4/internal/report"
)

// Reader implements report.SampleReader against the plprofiler extension.
type Reader struct {
	q   Querier
	ext *extension
}

var _ report.SampleReader = (*Reader)(nil)

// NewReader creates a Reader issuing queries on q.
func NewReader(q Querier) *Reader {
	return &Reader{q: q, ext: newExtension(q)}
}

// scopeFuncs holds the extension's set-returning functions per scope. Scope
// names are never interpolated into SQL directly.
var scopeFuncs = map[report.Scope]struct {
	callgraph string
	linestats string
	funcOIDs  string
}{
	report.ScopeLocal: {
		callgraph: "pl_profiler_callgraph_local",
		linestats: "pl_profiler_linestats_local",
		funcOIDs:  "pl_profiler_func_oids_local",
	},
	report.ScopeShared: {
		callgraph: "pl_profiler_callgraph_shared",
		linestats: "pl_profiler_linestats_shared",
		funcOIDs:  "pl_profiler_func_oids_shared",
	},
}

func funcsFor(scope report.Scope) (callgraph, linestats, funcOIDs string, err error) {
	f, ok := scopeFuncs[scope]
	if !ok {
		return "", "", "", fmt.Errorf("unknown data scope %q", scope)
	}
	return f.callgraph, f.linestats, f.funcOIDs, nil
}

// scopeCalls returns the qualified, argument-less calls of the scope's
// callgraph, linestats and func_oids functions.
func (r *Reader) scopeCalls(ctx context.Context, scope report.Scope) (callgraph, linestats, funcOIDs string, err error) {
	names := make([]string, 3)
	names[0], names[1], names[2], err = funcsFor(scope)
	if err != nil {
		return "", "", "", err
	}
	for i, n := range names {
		if names[i], err = r.ext.call(ctx, n, 0); err != nil {
			return "", "", "", err
		}
	}
	return names[0], names[1], names[2], nil
}

func (r *Reader) TopSelfTime(ctx context.Context, scope report.Scope, limit int) ([]report.RankedRoutine, error) {
	callgraph, _, _, err := r.scopeCalls(ctx, scope)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT stack[array_upper(stack, 1)] AS func_oid, sum(us_self)::bigint AS us_self
		FROM `+callgraph+` C
		GROUP BY func_oid
		ORDER BY us_self DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top routines: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.RankedRoutine, error) {
		var rr report.RankedRoutine
		err := row.Scan(&rr.OID, &rr.SelfTime)
		return rr, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan top routines: %w", err)
	}
	return out, nil
}

func (r *Reader) Metadata(ctx context.Context, oids []uint32) ([]report.FunctionRef, error) {
	rows, err := r.q.Query(ctx, `
		SELECT P.oid, N.nspname, P.proname
		FROM pg_catalog.pg_proc P
		JOIN pg_catalog.pg_namespace N ON N.oid = P.pronamespace
		WHERE P.oid = ANY($1::oid[])`, oids)
	if err != nil {
		return nil, fmt.Errorf("failed to query routine metadata: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.FunctionRef, error) {
		var f report.FunctionRef
		err := row.Scan(&f.OID, &f.Schema, &f.Name)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan routine metadata: %w", err)
	}
	return out, nil
}

func (r *Reader) LineStats(ctx context.Context, scope report.Scope) ([]report.LineStat, error) {
	_, linestats, funcOIDs, err := r.scopeCalls(ctx, scope)
	if err != nil {
		return nil, err
	}
	source, err := r.ext.qualified(ctx, "pl_profiler_funcs_source")
	if err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT L.func_oid, L.line_number,
		       sum(L.exec_count)::bigint AS exec_count,
		       sum(L.total_time)::bigint AS total_time,
		       max(L.longest_time)::bigint AS longest_time,
		       S.source
		FROM `+linestats+` L
		JOIN `+source+`(`+funcOIDs+`) S
		  ON S.func_oid = L.func_oid AND S.line_number = L.line_number
		GROUP BY L.func_oid, L.line_number, S.source
		ORDER BY L.func_oid, L.line_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query line stats: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.LineStat, error) {
		var (
			l      report.LineStat
			source *string
		)
		err := row.Scan(&l.OID, &l.LineNumber, &l.ExecCount, &l.TotalTime, &l.LongestTime, &source)
		if source != nil {
			l.Source = *source
		}
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan line stats: %w", err)
	}
	return out, nil
}

func (r *Reader) Routine(ctx context.Context, scope report.Scope, oid uint32) (*report.RoutineInfo, error) {
	callgraph, _, _, err := r.scopeCalls(ctx, scope)
	if err != nil {
		return nil, err
	}

	info := &report.RoutineInfo{OID: oid}
	err = r.q.QueryRow(ctx, `
		SELECT N.nspname, P.proname,
		       coalesce(pg_catalog.pg_get_function_result(P.oid), ''),
		       pg_catalog.pg_get_function_arguments(P.oid),
		       coalesce((SELECT sum(C.us_self) FROM `+callgraph+` C
		                 WHERE C.stack[array_upper(C.stack, 1)] = P.oid), 0)::bigint
		FROM pg_catalog.pg_proc P
		JOIN pg_catalog.pg_namespace N ON N.oid = P.pronamespace
		WHERE P.oid = $1`, oid).
		Scan(&info.Schema, &info.Name, &info.ResultType, &info.Arguments, &info.SelfTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query routine %d: %w", oid, err)
	}
	return info, nil
}

func (r *Reader) CallGraph(ctx context.Context, scope report.Scope) ([]report.CallGraphEdge, error) {
	callgraph, _, _, err := r.scopeCalls(ctx, scope)
	if err != nil {
		return nil, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT stack::oid[], call_count::bigint, us_total::bigint, us_children::bigint, us_self::bigint
		FROM `+callgraph)
	if err != nil {
		return nil, fmt.Errorf("failed to query call graph: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.CallGraphEdge, error) {
		var e report.CallGraphEdge
		err := row.Scan(&e.Stack, &e.CallCount, &e.TotalTime, &e.ChildrenTime, &e.SelfTime)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan call graph: %w", err)
	}
	return out, nil
}

func (r *Reader) OverflowFlags(ctx context.Context) (report.OverflowFlags, error) {
	var (
		o     report.OverflowFlags
		calls = make([]string, 3)
	)
	for i, name := range []string{
		"pl_profiler_callgraph_overflow",
		"pl_profiler_functions_overflow",
		"pl_profiler_lines_overflow",
	} {
		call, err := r.ext.call(ctx, name, 0)
		if err != nil {
			return report.OverflowFlags{}, err
		}
		calls[i] = call
	}
	err := r.q.QueryRow(ctx, "SELECT "+strings.Join(calls, ", ")).
		Scan(&o.CallGraph, &o.Functions, &o.Lines)
	if err != nil {
		return report.OverflowFlags{}, fmt.Errorf("failed to query overflow flags: %w", err)
	}
	return o, nil
}
