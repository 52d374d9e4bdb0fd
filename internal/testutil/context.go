// Package testutil provides shared helpers for tests.
package testutil

import (
	"context"
	"testing"
	"time"
)

// NewTestContext creates a test context with a 30-second timeout.
func NewTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// Context returns a 30-second context cancelled when t finishes.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := NewTestContext()
	t.Cleanup(cancel)
	return ctx
}

// FixedClock returns a clock func that always reports ts.
func FixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}
