package safe

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	regular := filepath.Join(dir, "report.html")
	require.NoError(t, os.WriteFile(regular, []byte("<html></html>"), 0o600))

	link := filepath.Join(dir, "link.html")
	require.NoError(t, os.Symlink(regular, link))

	t.Run("regular file", func(t *testing.T) {
		data, err := ReadFile(regular, 0)
		require.NoError(t, err)
		assert.Equal(t, "<html></html>", string(data))
	})

	t.Run("symlink refused", func(t *testing.T) {
		_, err := ReadFile(link, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "symlink")
	})

	t.Run("directory refused", func(t *testing.T) {
		_, err := ReadFile(dir, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a regular file")
	})

	t.Run("too large", func(t *testing.T) {
		_, err := ReadFile(regular, 4)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maximum allowed size")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(dir, "nope"), 0)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestCreateExclusive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.html")

	f, err := CreateExclusive(path, 0)
	require.NoError(t, err)
	_, err = f.WriteString("x")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	_, err = CreateExclusive(path, 0)
	assert.True(t, errors.Is(err, fs.ErrExist))

	dangling := filepath.Join(dir, "dangling.html")
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), dangling))
	_, err = CreateExclusive(dangling, 0)
	assert.True(t, errors.Is(err, fs.ErrExist))
}
