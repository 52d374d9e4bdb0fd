// Package retry runs an operation again with exponential backoff when it
// fails with an error the caller classifies as transient.
//
// Sample reads against the profiling engine and DuckDB write conflicts are
// the two users in this module:
//
//	err := retry.Do(ctx, retry.DataSourceConfig(), func() error {
//	    rep, err = agg.Build(ctx, report.ScopeShared, nil)
//	    return err
//	}, errors.IsRetryable)
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config defines the backoff schedule.
type Config struct {
	// MaxRetries is the total number of attempts. Values below 1 mean one attempt.
	MaxRetries int

	// InitialBackoff is the wait before the second attempt. Attempt n waits
	// InitialBackoff * 2^(n-1).
	InitialBackoff time.Duration

	// MaxBackoff caps a single wait. Zero means no cap.
	MaxBackoff time.Duration

	// Jitter in [0, 1] stretches later waits by up to Jitter*backoff.
	Jitter float64
}

// DataSourceConfig is the schedule used for DataSourceError retries.
func DataSourceConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Jitter:         0.1,
	}
}

// ConflictConfig is the schedule used for DuckDB transaction conflicts.
func ConflictConfig() Config {
	return Config{
		MaxRetries:     10,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
		Jitter:         0.1,
	}
}

// ShouldRetryFunc decides whether err is transient. A nil func retries everything.
type ShouldRetryFunc func(error) bool

// Do calls fn until it succeeds, shouldRetry rejects its error, the attempts
// run out, or ctx is done. Exhaustion wraps the last error.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(calculateBackoff(cfg, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// calculateBackoff returns the wait before the given attempt (1-based retry index).
func calculateBackoff(cfg Config, attempt int) time.Duration {
	backoff := time.Duration(math.Pow(2, float64(attempt-1)) * float64(cfg.InitialBackoff))

	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		backoff = cfg.MaxBackoff
	}

	if cfg.Jitter > 0 && cfg.MaxRetries > 0 {
		backoff += time.Duration(float64(backoff) * cfg.Jitter * float64(attempt) / float64(cfg.MaxRetries))
	}

	return backoff
}
