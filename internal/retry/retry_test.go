package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func fastConfig(attempts int) Config {
	return Config{MaxRetries: attempts, InitialBackoff: time.Millisecond}
}

func TestDo_Success(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	}, func(err error) bool { return errors.Is(err, errTransient) })

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustedRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		return errTransient
	}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableError(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		return fatal
	}, func(err error) bool { return errors.Is(err, errTransient) })

	assert.Same(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestDo_SingleAttemptReturnsErrorUnwrapped(t *testing.T) {
	err := Do(context.Background(), Config{}, func() error { return errTransient }, nil)
	assert.Same(t, errTransient, err)
}

func TestDo_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxRetries: 5, InitialBackoff: time.Hour}

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return errTransient
	}, nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestCalculateBackoff(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, calculateBackoff(cfg, 1))
	assert.Equal(t, 200*time.Millisecond, calculateBackoff(cfg, 2))
	assert.Equal(t, 400*time.Millisecond, calculateBackoff(cfg, 3))

	cfg.MaxBackoff = 250 * time.Millisecond
	assert.Equal(t, 250*time.Millisecond, calculateBackoff(cfg, 3))

	cfg.Jitter = 0.5
	// 250ms * 0.5 * 3/5 = 75ms of jitter on top of the cap.
	assert.Equal(t, 325*time.Millisecond, calculateBackoff(cfg, 3))
}
