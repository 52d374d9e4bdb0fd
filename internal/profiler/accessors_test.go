package profiler

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/session"
	"github.com/bigsql/pgadmin4/internal/testutil"
)

func sqlString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestSource(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.Context(t)

	src, err := h.runner.Source(ctx, h.direct(t))
	require.NoError(t, err)
	assert.Equal(t, "BEGIN\n  RETURN n;\nEND", src)

	_, err = h.runner.Source(ctx, h.indirect(t, session.RunConfig{DurationSeconds: 5}))
	require.ErrorIs(t, err, pgerrors.ErrConfiguration)

	_, err = h.runner.Source(ctx, "missing")
	require.ErrorIs(t, err, pgerrors.ErrNotConnected)
}

func TestParameters_Direct(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.Context(t)
	id := h.direct(t)

	_, err := h.runner.SetArguments(ctx, id, []session.Argument{{Value: "now()", IsExpression: true}})
	require.NoError(t, err)

	params, err := h.runner.Parameters(ctx, id)
	require.NoError(t, err)
	require.Len(t, params, 2)

	assert.Equal(t, Parameter{Name: "n", Type: "integer", Mode: "i", Value: "now()", IsExpression: true}, params[0])
	assert.Equal(t, Parameter{Name: "$2", Type: "text", Mode: "i", Default: "'x'::text"}, params[1])
}

func TestParameters_Indirect(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.Context(t)

	pid := int32(99)
	params, err := h.runner.Parameters(ctx, h.indirect(t, session.RunConfig{DurationSeconds: 20, SampleIntervalMS: 500, TargetPID: &pid}))
	require.NoError(t, err)
	assert.Equal(t, []Parameter{
		{Name: "Duration", Value: "20"},
		{Name: "Interval", Value: "500"},
		{Name: "PID", Value: "99"},
	}, params)

	params, err = h.runner.Parameters(ctx, h.indirect(t, session.RunConfig{DurationSeconds: 20}))
	require.NoError(t, err)
	assert.Equal(t, Parameter{Name: "PID", IsNull: true}, params[2])
}

func TestDuration(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.Context(t)

	d, err := h.runner.Duration(ctx, h.indirect(t, session.RunConfig{DurationSeconds: 45}))
	require.NoError(t, err)
	assert.Equal(t, 45, d)

	_, err = h.runner.Duration(ctx, h.direct(t))
	require.ErrorIs(t, err, pgerrors.ErrConfiguration)
}

func TestReportOptions(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.Context(t)
	id := h.direct(t)

	opts, err := h.runner.ReportOptions(ctx, id)
	require.NoError(t, err)
	require.Len(t, opts, 6)
	assert.Equal(t, "Name", opts[0].Label)
	assert.Equal(t, "compute", opts[0].Value)

	opts, err = h.runner.SetReportOptions(ctx, id, map[string]string{"SVG_Width": "900", "Tabstop": "4", "title": "Hot path"})
	require.NoError(t, err)
	values := make(map[string]string, len(opts))
	for _, o := range opts {
		values[o.Key] = o.Value
	}
	assert.Equal(t, "900", values[session.OptSVGWidth])
	assert.Equal(t, "4", values[session.OptTabStop])
	assert.Equal(t, "Hot path", values[session.OptTitle])

	_, err = h.runner.SetReportOptions(ctx, id, map[string]string{"title": "ignored", "colour": "red"})
	require.ErrorIs(t, err, pgerrors.ErrConfiguration)

	s, err := h.sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hot path", s.ReportConfig.Title, "rejected update leaves config untouched")
}

func TestSetArguments(t *testing.T) {
	h := newHarness(t)
	ctx := testutil.Context(t)
	id := h.direct(t)

	s, err := h.runner.SetArguments(ctx, id, []session.Argument{{Value: "7"}, {IsNull: true}})
	require.NoError(t, err)
	assert.Len(t, s.Arguments, 2)

	require.Len(t, h.args.last, 2)
	assert.Equal(t, "7", h.args.last[0].Value)
	assert.Equal(t, 1, h.args.last[1].ArgID)
	assert.Nil(t, h.args.last[1].Value)
	assert.True(t, h.args.last[1].IsNull)

	_, err = h.runner.SetArguments(ctx, id, []session.Argument{{}, {}, {}})
	require.ErrorIs(t, err, pgerrors.ErrConfiguration)

	_, err = h.runner.SetArguments(ctx, h.indirect(t, session.RunConfig{DurationSeconds: 5}), []session.Argument{{Value: "1"}})
	require.ErrorIs(t, err, pgerrors.ErrConfiguration)
}
