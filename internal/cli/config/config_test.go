package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bigsql/pgadmin4/internal/config"
	"github.com/bigsql/pgadmin4/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewConfigCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	cmd.SetContext(testutil.Context(t))
	err := cmd.Execute()
	return out.String(), err
}

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"host=db password=s3cret dbname=app", "host=db password=******** dbname=app"},
		{"host=db password = 'a b\\'c' dbname=app", "host=db password = ******** dbname=app"},
		{"host=db dbname=app", "host=db dbname=app"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, redactDSN(tt.in), tt.in)
	}

	got := redactDSN("postgres://alice:s3cret@db:5432/app")
	assert.NotContains(t, got, "s3cret")
	assert.Contains(t, got, "alice:")
	assert.Contains(t, got, "@db:5432/app")

	got = redactDSN("postgresql://db/app?password=s3cret&sslmode=disable")
	assert.NotContains(t, got, "s3cret")
	assert.Contains(t, got, "sslmode=disable")

	assert.Equal(t, "postgres://db/app", redactDSN("postgres://db/app"))
}

func TestInitViewValidate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)

	out, err := execute(t, "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml")+"\n", out)

	_, err = execute(t, "view", "--raw")
	assert.Error(t, err, "no file yet")

	out, err = execute(t, "init", "--postgres-dsn", "postgres://alice:pw@db/app")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")
	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	_, err = execute(t, "init")
	assert.Error(t, err, "refuses to overwrite")
	_, err = execute(t, "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "view", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "top_k: 10")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("postgres:\n  dsn: postgres://alice:pw@db/app\nsessions:\n  redis:\n    password: hunter2\n"), 0o600))
	out, err = execute(t, "view")
	require.NoError(t, err)
	assert.NotContains(t, out, ":pw@")
	assert.NotContains(t, out, "hunter2")

	var viewed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &viewed))
	assert.Contains(t, viewed, "storage")

	out, err = execute(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")

	t.Setenv("PGPROF_TOP_K", "0")
	_, err = execute(t, "validate")
	assert.Error(t, err)
}
