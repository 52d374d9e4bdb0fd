package errors

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type mockCloser struct {
	closeErr error
	closed   bool
}

func (m *mockCloser) Close() error {
	m.closed = true
	return m.closeErr
}

func TestDeferClose(t *testing.T) {
	tests := []struct {
		name       string
		closer     io.Closer
		closeErr   error
		wantLogged bool
	}{
		{
			name:       "nil closer",
			closer:     nil,
			wantLogged: false,
		},
		{
			name:       "successful close",
			closer:     &mockCloser{},
			wantLogged: false,
		},
		{
			name:       "close with error",
			closer:     &mockCloser{closeErr: errors.New("close failed")},
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			DeferClose(logger, tt.closer, "test close")

			if tt.closer != nil {
				mc := tt.closer.(*mockCloser)
				if !mc.closed {
					t.Error("Close() was not called")
				}
			}

			logged := buf.Len() > 0
			if logged != tt.wantLogged {
				t.Errorf("logged = %v, want %v", logged, tt.wantLogged)
			}
		})
	}
}

func TestDeferRollback(t *testing.T) {
	t.Run("nil transaction", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)

		// Should not panic or log with nil transaction.
		DeferRollback(logger, nil)

		if buf.Len() > 0 {
			t.Error("expected no logging for nil transaction")
		}
	})

	// Note: Testing actual rollback behavior requires a database connection.
	// The function correctly handles nil checks and sql.ErrTxDone per implementation.
	// Integration tests with real transactions should be added if needed.
}

func TestRemoveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.html")
	if err := os.WriteFile(path, []byte("<html>"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	RemoveFile(logger, path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected file to be removed, stat err = %v", err)
	}

	// Removing again is silent.
	RemoveFile(logger, path)
	RemoveFile(logger, "")
	if buf.Len() > 0 {
		t.Errorf("expected no logging, got %q", buf.String())
	}
}
