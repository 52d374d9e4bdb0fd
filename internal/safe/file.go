// Package safe wraps file access to stored report artifacts with checks
// against symlink substitution and oversized reads.
package safe

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultMaxFileSize bounds ReadFile when no limit is given (64MB).
const DefaultMaxFileSize = 64 << 20

// ReadFile reads a regular file of at most maxSize bytes. Symlinks are
// refused. A maxSize of zero means DefaultMaxFileSize.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	cleanPath := filepath.Clean(path)

	info, err := os.Lstat(cleanPath)
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("file %q is a symlink, which is not allowed for security reasons", path)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("path %q is not a regular file", path)
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("file exceeds maximum allowed size of %d bytes", maxSize)
	}

	// #nosec G304 - validated above.
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	// The file may have grown since Lstat.
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("file exceeds maximum allowed size of %d bytes", maxSize)
	}
	return data, nil
}

// CreateExclusive creates path for writing and fails if anything, including
// a dangling symlink, already exists there. A zero perm means 0600.
func CreateExclusive(path string, perm os.FileMode) (*os.File, error) {
	if perm == 0 {
		perm = 0o600
	}
	// #nosec G304 - O_EXCL refuses existing files and symlinks.
	return os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
}
