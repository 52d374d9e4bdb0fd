package session

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigsql/pgadmin4/internal/config"
	"github.com/bigsql/pgadmin4/internal/session"
	"github.com/bigsql/pgadmin4/internal/testutil"
)

func TestToRow(t *testing.T) {
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pid := int32(12)

	tests := []struct {
		name string
		in   *session.Session
		want sessionRow
	}{
		{
			name: "uninitialized",
			in:   &session.Session{ID: "a", CreatedAt: created},
			want: sessionRow{ID: "a", Kind: "new", Created: created},
		},
		{
			name: "direct",
			in: &session.Session{
				ID:             "b",
				Target:         &session.DirectTarget{Schema: "public", Name: "compute"},
				ConnectionRefs: []string{"c1"},
				DatabaseName:   "shop",
			},
			want: sessionRow{ID: "b", Kind: "direct", Target: "public.compute", Database: "shop", Conns: 1},
		},
		{
			name: "indirect",
			in: &session.Session{
				ID:        "c",
				Target:    &session.IndirectTarget{},
				RunConfig: &session.RunConfig{DurationSeconds: 30, TargetPID: &pid},
			},
			want: sessionRow{ID: "c", Kind: "indirect", Target: "30s window, pid 12"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toRow(tt.in))
		})
	}
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SetContext(testutil.Context(t))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCommands_MemoryBackend(t *testing.T) {
	t.Setenv(config.EnvConfigDir, t.TempDir())

	_, errOut, err := execute(t, NewSessionCmd(), "list")
	require.NoError(t, err)
	assert.Contains(t, errOut, "No live sessions.")

	out, _, err := execute(t, NewSessionCmd(), "close", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Closed 0 session(s)")

	_, _, err = execute(t, NewSessionCmd(), "close")
	assert.Error(t, err)

	_, _, err = execute(t, NewSessionCmd(), "close", "--all", "x")
	assert.Error(t, err)
}
