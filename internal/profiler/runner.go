// Package profiler orchestrates profiling runs: it binds sessions to a
// routine or a monitoring window, drives the engine controls around the run,
// aggregates the samples and hands the report to the store.
package profiler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/bigsql/pgadmin4/internal/constants"
	"github.com/bigsql/pgadmin4/internal/database"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/reportstore"
	"github.com/bigsql/pgadmin4/internal/retry"
	"github.com/bigsql/pgadmin4/internal/session"
)

// ReportSaver persists finished reports.
type ReportSaver interface {
	Save(ctx context.Context, req reportstore.SaveRequest) (*reportstore.StoredReport, error)
}

// ArgumentStore remembers routine argument values between sessions.
type ArgumentStore interface {
	SavedArguments(ctx context.Context, key database.RoutineKey) ([]*database.SavedArgument, error)
	SaveArguments(ctx context.Context, key database.RoutineKey, inputs []database.ArgumentInput) error
}

// Runner runs profiling sessions.
type Runner struct {
	sessions *session.Manager
	backend  Backend
	saver    ReportSaver
	args     ArgumentStore
	logger   zerolog.Logger

	topK           int
	retry          retry.Config
	defaults       session.ReportDefaults
	maxDuration    time.Duration
	cleanupTimeout time.Duration
	wait           func(ctx context.Context, d time.Duration) error
}

// Option configures a Runner.
type Option func(*Runner)

// WithArgumentStore remembers argument values per routine.
func WithArgumentStore(s ArgumentStore) Option {
	return func(r *Runner) { r.args = s }
}

// WithTopK sets how many routines a report covers.
func WithTopK(k int) Option {
	return func(r *Runner) { r.topK = k }
}

// WithRetry sets the backoff for transient sample read failures.
func WithRetry(cfg retry.Config) Option {
	return func(r *Runner) { r.retry = cfg }
}

// WithReportDefaults seeds the report options of new sessions.
func WithReportDefaults(d session.ReportDefaults) Option {
	return func(r *Runner) { r.defaults = d }
}

// WithMaxDuration caps monitoring windows. Zero means no cap.
func WithMaxDuration(d time.Duration) Option {
	return func(r *Runner) { r.maxDuration = d }
}

// WithWait replaces the monitoring window sleep.
func WithWait(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) { r.wait = fn }
}

// New creates a Runner.
func New(sessions *session.Manager, backend Backend, saver ReportSaver, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		sessions:       sessions,
		backend:        backend,
		saver:          saver,
		logger:         logger.With().Str("component", "profiler").Logger(),
		topK:           constants.DefaultTopK,
		retry:          retry.DataSourceConfig(),
		defaults:       session.DefaultReportDefaults(),
		maxDuration:    constants.MaxMonitorDuration,
		cleanupTimeout: constants.DefaultCloseTimeout,
		wait:           sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// aggregate builds the report of scope from reader, retrying DataSource
// failures.
func (r *Runner) aggregate(ctx context.Context, reader report.SampleReader, scope report.Scope) (*report.Report, error) {
	agg, err := report.NewAggregator(reader, r.topK, r.logger)
	if err != nil {
		return nil, err
	}

	var rep *report.Report
	err = retry.Do(ctx, r.retry, func() error {
		var buildErr error
		rep, buildErr = agg.Build(ctx, scope, nil)
		return buildErr
	}, pgerrors.IsRetryable)
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// conn resolves the dedicated backend of s.
func (r *Runner) conn(s *session.Session, op string) (string, Conn, error) {
	for _, ref := range s.ConnectionRefs {
		if c, ok := r.backend.Conn(ref); ok {
			return ref, c, nil
		}
	}
	return "", nil, pgerrors.Errorf(pgerrors.KindNotConnected, op, "session %s has no live connection", s.ID)
}

// cleanupContext outlives a cancelled run so that collection is always
// switched off.
func (r *Runner) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), r.cleanupTimeout)
}

// logFailure logs err at a level matching its kind.
func (r *Runner) logFailure(err error, id, msg string) {
	if err == nil {
		return
	}
	if pgerrors.IsUserFacing(err) || errors.Is(err, context.Canceled) {
		r.logger.Info().Err(err).Str("trans_id", id).Msg(msg)
		return
	}
	r.logger.Error().Err(err).Str("trans_id", id).Str("kind", pgerrors.KindOf(err).String()).Msg(msg)
}
