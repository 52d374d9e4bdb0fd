package plprofiler

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/report"
)

func TestParseLibraries(t *testing.T) {
	assert.Equal(t, []string{"pg_stat_statements", "plprofiler"}, ParseLibraries(`pg_stat_statements, "plprofiler"`))
	assert.Nil(t, ParseLibraries(""))
	assert.Nil(t, ParseLibraries(" , "))
}

func TestPluginPlacement(t *testing.T) {
	with := []string{"pg_stat_statements", "plprofiler"}
	withPath := []string{"$libdir/plprofiler"}
	without := []string{"pg_stat_statements"}

	assert.NoError(t, CheckDirect(without))
	assert.NoError(t, CheckIndirect(with))
	assert.NoError(t, CheckIndirect(withPath))

	err := CheckDirect(with)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, pgerrors.ErrConfiguration))
	assert.Contains(t, err.Error(), "direct profiling")

	err = CheckIndirect(without)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, pgerrors.ErrConfiguration))
	assert.Contains(t, err.Error(), "indirect profiling")
}

func TestFuncsFor(t *testing.T) {
	cg, ls, oids, err := funcsFor(report.ScopeShared)
	require.NoError(t, err)
	assert.Equal(t, "pl_profiler_callgraph_shared", cg)
	assert.Equal(t, "pl_profiler_linestats_shared", ls)
	assert.Equal(t, "pl_profiler_func_oids_shared", oids)

	_, _, _, err = funcsFor(report.Scope("local(); DROP TABLE x; --"))
	assert.Error(t, err)
}

func TestSplitDefaults(t *testing.T) {
	assert.Nil(t, splitDefaults(""))
	assert.Equal(t, []string{"0", "'a,b'::text", "ARRAY[1, 2]", "f(1, 2)"},
		splitDefaults("0, 'a,b'::text, ARRAY[1, 2], f(1, 2)"))
}

func TestAlignDefaults(t *testing.T) {
	types := []string{"integer", "integer", "text", "integer"}
	modes := []string{"i", "i", "o", "i"}
	got := alignDefaults(types, modes, []string{"5", "7"}, 2)
	assert.Equal(t, []string{"", "5", "", "7"}, got)

	assert.Nil(t, alignDefaults(types, modes, nil, 0))
}

// recordingQuerier answers the extension lookup with schema (no rows when
// empty), answers any other single-row query with overflow flags, and
// records everything else.
type recordingQuerier struct {
	schema  string
	lookups int
	rows    []string
	execs   []string
	args    [][]any
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execs = append(q.execs, sql)
	q.args = append(q.args, args)
	return pgconn.CommandTag{}, nil
}

func (q *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, stderrors.New("not supported")
}

func (q *recordingQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if strings.Contains(sql, "pg_extension") {
		q.lookups++
		if q.schema == "" {
			return errRow{err: pgx.ErrNoRows}
		}
		return stringRow(q.schema)
	}
	q.rows = append(q.rows, sql)
	return boolsRow{true, false, true}
}

type stringRow string

func (r stringRow) Scan(dest ...any) error {
	*dest[0].(*string) = string(r)
	return nil
}

type boolsRow []bool

func (r boolsRow) Scan(dest ...any) error {
	for i, d := range dest {
		*d.(*bool) = r[i]
	}
	return nil
}

func TestEngine_QualifiesExtensionCalls(t *testing.T) {
	ctx := context.Background()
	q := &recordingQuerier{schema: "Prof Tools"}
	e := NewEngine(q)

	require.NoError(t, e.SetEnabledGlobal(ctx, true))
	require.NoError(t, e.ResetShared(ctx))
	require.NoError(t, e.SetCollectInterval(ctx, 2))

	assert.Equal(t, []string{
		`SELECT "Prof Tools"."pl_profiler_set_enabled_global"($1)`,
		`SELECT "Prof Tools"."pl_profiler_reset_shared"()`,
		`SELECT "Prof Tools"."pl_profiler_set_collect_interval"($1)`,
	}, q.execs)
	assert.Equal(t, []any{true}, q.args[0])
	assert.Equal(t, []any{2}, q.args[2])
	assert.Equal(t, 1, q.lookups, "schema is looked up once per handle")
}

func TestEngine_ExtensionNotInstalled(t *testing.T) {
	q := &recordingQuerier{}
	err := NewEngine(q).ResetLocal(context.Background())
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, pgerrors.ErrConfiguration))
	assert.Contains(t, err.Error(), "not installed")
	assert.Empty(t, q.execs)
}

func TestConn_SharesExtensionLookup(t *testing.T) {
	ctx := context.Background()
	q := &recordingQuerier{schema: "ext"}
	c := NewConn(q)

	require.NoError(t, c.SetEnabledLocal(ctx, true))
	flags, err := c.OverflowFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.OverflowFlags{CallGraph: true, Lines: true}, flags)

	require.Len(t, q.rows, 1)
	assert.Equal(t, `SELECT "ext"."pl_profiler_callgraph_overflow"(), `+
		`"ext"."pl_profiler_functions_overflow"(), "ext"."pl_profiler_lines_overflow"()`, q.rows[0])
	assert.Equal(t, 1, q.lookups)
}
