package duckdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		path string
		opts Options
		want string
	}{
		{name: "plain file", path: "/tmp/idx.duckdb", want: "/tmp/idx.duckdb"},
		{name: "memory", path: "", want: ""},
		{name: "read only", path: "/tmp/idx.duckdb", opts: Options{ReadOnly: true}, want: "/tmp/idx.duckdb?access_mode=READ_ONLY"},
		{name: "threads", path: "/tmp/idx.duckdb", opts: Options{Threads: 2}, want: "/tmp/idx.duckdb?threads=2"},
		{
			name: "caller params win",
			path: "/tmp/idx.duckdb?access_mode=READ_WRITE",
			opts: Options{ReadOnly: true},
			want: "/tmp/idx.duckdb?access_mode=READ_WRITE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.path, tt.opts))
		})
	}
}

func TestOpenDB_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "idx.duckdb")

	db, err := OpenDB(path, Options{})
	require.NoError(t, err)

	_, err = db.Exec("CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopen read-only and see the table.
	ro, err := OpenDB(path, Options{ReadOnly: true})
	require.NoError(t, err)
	defer func() { _ = ro.Close() }()

	var n int
	require.NoError(t, ro.QueryRow("SELECT count(*) FROM t").Scan(&n))
	assert.Equal(t, 0, n)

	_, err = ro.Exec("INSERT INTO t VALUES (1)")
	assert.Error(t, err)
}

func TestOpenDB_BootQueries(t *testing.T) {
	db, err := OpenDB(MemoryDSN, Options{BootQueries: []string{"SET threads TO 1"}})
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var threads int64
	require.NoError(t, db.QueryRow("SELECT current_setting('threads')").Scan(&threads))
	assert.Equal(t, int64(1), threads)
}

func TestOpenDB_BadBootQuery(t *testing.T) {
	_, err := OpenDB(MemoryDSN, Options{BootQueries: []string{"THIS IS NOT SQL"}})
	assert.Error(t, err)
}
