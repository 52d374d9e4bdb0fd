package config

import (
	"fmt"
	"strings"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// ValidationError represents a single validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiValidationError represents multiple validation errors.
type MultiValidationError struct {
	Errors []ValidationError
}

// Error implements the error interface.
func (e *MultiValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

// Validate checks the config. Failures are reported as a configuration
// error wrapping a *MultiValidationError.
func (c *Config) Validate() error {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.Profiler.TopK < 1 {
		add("profiler.top_k", "top_k must be at least 1")
	}
	if c.Profiler.Retry.MaxRetries < 1 {
		add("profiler.retry.max_retries", "max_retries must be at least 1")
	}
	if c.Profiler.Retry.InitialBackoff < 0 || c.Profiler.Retry.MaxBackoff < c.Profiler.Retry.InitialBackoff {
		add("profiler.retry", "backoff must satisfy 0 <= initial_backoff <= max_backoff")
	}

	if c.Monitor.DefaultDuration <= 0 {
		add("monitor.default_duration", "default duration must be positive")
	}
	if c.Monitor.DefaultInterval < 0 {
		add("monitor.default_interval", "default interval must not be negative")
	}
	if c.Monitor.MaxDuration < c.Monitor.DefaultDuration {
		add("monitor.max_duration", "max duration must not be below the default duration")
	}

	if c.Postgres.MaxConns < 1 {
		add("postgres.max_conns", "max_conns must be at least 1")
	}

	switch c.Sessions.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Sessions.Redis.Addr == "" {
			add("sessions.redis.addr", "redis address is required for the redis backend")
		}
		if c.Sessions.Redis.TTL < 0 {
			add("sessions.redis.ttl", "ttl must not be negative")
		}
	default:
		add("sessions.backend", fmt.Sprintf("backend must be '%s' or '%s'", BackendMemory, BackendRedis))
	}

	switch c.Storage.Format {
	case FormatHTML, FormatFolded, FormatPprof:
	default:
		add("storage.format", fmt.Sprintf("format must be '%s', '%s', or '%s'", FormatHTML, FormatFolded, FormatPprof))
	}

	if len(errs) > 0 {
		return pgerrors.E(pgerrors.KindConfiguration, "config.Validate", &MultiValidationError{Errors: errs})
	}
	return nil
}
