package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigsql/pgadmin4/internal/config"
	"github.com/bigsql/pgadmin4/internal/constants"
	"github.com/bigsql/pgadmin4/internal/database"
	"github.com/bigsql/pgadmin4/internal/render"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/reportstore"
	"github.com/bigsql/pgadmin4/internal/session"
	"github.com/bigsql/pgadmin4/internal/testutil"
)

// seed saves reports under a fresh config dir and returns the saved entries.
func seed(t *testing.T, names ...string) []*reportstore.StoredReport {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)

	storage := filepath.Join(dir, constants.DefaultReportsDir)
	db, err := database.New(filepath.Join(storage, constants.DefaultIndexFile), testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer db.Close()

	renderer, err := render.New(render.FormatHTML)
	require.NoError(t, err)
	store, err := reportstore.New(db, storage, renderer, testutil.NewTestLogger(t))
	require.NoError(t, err)

	var saved []*reportstore.StoredReport
	for i, name := range names {
		r, err := store.Save(testutil.Context(t), reportstore.SaveRequest{
			Report: &report.Report{
				Scope:     report.ScopeLocal,
				CallGraph: []report.CallGraphEdge{{Stack: []uint32{1}, CallCount: 1, TotalTime: 10, SelfTime: 10}},
			},
			Config:          session.DefaultReportDefaults().DirectReportConfig(name),
			DatabaseName:    "shop",
			IsDirect:        i%2 == 0,
			DurationSeconds: 1.25,
		})
		require.NoError(t, err)
		saved = append(saved, r)
	}
	return saved
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewReportCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	cmd.SetContext(testutil.Context(t))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestList(t *testing.T) {
	seed(t, "compute", "Indirect", "compute_tax")

	out, _, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "compute_tax")
	assert.Contains(t, out, "1.250")

	out, _, err = run(t, "list", "--name", "COMPUTE", "--direct", "-o", "json")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "compute_tax", rows[0]["name"], "newest first")
	assert.Equal(t, "direct", rows[0]["kind"])

	out, _, err = run(t, "list", "--indirect", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "Indirect,indirect,shop")

	_, _, err = run(t, "list", "--direct", "--indirect")
	assert.Error(t, err)
}

func TestList_Empty(t *testing.T) {
	seed(t)
	out, errOut, err := run(t, "list")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "No saved reports.")
}

func TestShow(t *testing.T) {
	saved := seed(t, "compute")

	out, _, err := run(t, "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "<html")

	target := filepath.Join(t.TempDir(), "copy.html")
	_, errOut, err := run(t, "show", "1", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, errOut, "written to")

	copied, err := os.ReadFile(target)
	require.NoError(t, err)
	original, err := os.ReadFile(saved[0].StoragePath)
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	_, _, err = run(t, "show", "1", "--output", target)
	assert.Error(t, err, "existing file is not overwritten")

	_, _, err = run(t, "show", "99")
	assert.Error(t, err)

	_, _, err = run(t, "show", "abc")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	saved := seed(t, "a", "b")

	out, errOut, err := run(t, "delete", "1", "42")
	require.Error(t, err)
	assert.Contains(t, out, "Deleted report #1")
	assert.Contains(t, errOut, "Report #42")

	_, statErr := os.Stat(saved[0].StoragePath)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(saved[1].StoragePath)
	assert.NoError(t, statErr)
}

func TestSweep(t *testing.T) {
	saved := seed(t, "a")
	orphan := filepath.Join(filepath.Dir(saved[0].StoragePath), "lost@2026-01-01_00-00.html")
	require.NoError(t, os.WriteFile(orphan, []byte("x"), 0o600))

	out, _, err := run(t, "sweep", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Would remove "+orphan)
	assert.FileExists(t, orphan)

	out, _, err = run(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed "+orphan)
	assert.NoFileExists(t, orphan)
	assert.FileExists(t, saved[0].StoragePath)
}
