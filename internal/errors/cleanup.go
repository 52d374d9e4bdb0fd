// Package errors provides the profiler's error taxonomy and cleanup helpers.
package errors

import (
	"database/sql"
	stderrors "errors"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
)

// DeferClose closes an io.Closer and logs a failure instead of dropping it.
func DeferClose(logger zerolog.Logger, closer io.Closer, msg string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logger.Warn().Err(err).Msg(msg)
	}
}

// DeferRollback rolls back a transaction with logging.
// sql.ErrTxDone is expected after a successful commit and is ignored.
func DeferRollback(logger zerolog.Logger, tx *sql.Tx) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && !stderrors.Is(err, sql.ErrTxDone) {
		logger.Warn().Err(err).Msg("transaction rollback failed")
	}
}

// RemoveFile deletes a partially written artifact. A file that is already
// gone is not an error.
func RemoveFile(logger zerolog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		logger.Warn().Err(err).Str("path", path).Msg("failed to remove file")
	}
}
