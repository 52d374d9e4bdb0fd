package profiler

import (
	"context"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/reportstore"
)

// MonitorResult is the outcome of a monitoring window.
type MonitorResult struct {
	Report  *reportstore.StoredReport
	Profile *report.Report
}

// Monitor collects shared samples for the session's monitoring window and
// saves the report. Closing the session ends the window early with a
// NotConnected error. Global and pid collection are switched off afterwards
// whatever happens.
func (r *Runner) Monitor(ctx context.Context, id string) (res *MonitorResult, err error) {
	const op = "profiler.Monitor"
	defer func() { r.logFailure(err, id, "Monitoring run failed") }()

	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.IsIndirect() {
		return nil, pgerrors.Errorf(pgerrors.KindConfiguration, op, "session %s is not an indirect profiling session", id)
	}
	run := *s.RunConfig
	_, conn, err := r.conn(s, op)
	if err != nil {
		return nil, err
	}

	runCtx, done, err := r.sessions.RunContext(ctx, id)
	if err != nil {
		return nil, err
	}
	defer done()

	defer r.stopShared(ctx, id)

	if err := conn.ResetShared(runCtx); err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, op, err)
	}
	if run.TargetPID != nil {
		err = conn.SetEnabledPID(runCtx, *run.TargetPID)
	} else {
		err = conn.SetEnabledGlobal(runCtx, true)
	}
	if err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, op, err)
	}
	if err := conn.SetCollectInterval(runCtx, collectInterval(run.SampleIntervalMS)); err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, op, err)
	}

	r.logger.Debug().Str("trans_id", id).Dur("duration", run.Duration()).Msg("Monitoring window started")
	if err := r.wait(runCtx, run.Duration()); err != nil {
		return nil, runError(ctx, runCtx, op, err)
	}

	agg, err := r.aggregate(runCtx, conn, report.ScopeShared)
	if err != nil {
		return nil, runError(ctx, runCtx, op, err)
	}

	saved, err := r.saver.Save(ctx, reportstore.SaveRequest{
		Report:          agg,
		Config:          s.ReportConfig,
		DatabaseName:    s.DatabaseName,
		IsDirect:        false,
		DurationSeconds: float64(run.DurationSeconds),
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("trans_id", id).
		Str("database", s.DatabaseName).
		Int64("report_id", saved.ID).
		Msg("Monitoring run finished")
	return &MonitorResult{Report: saved, Profile: agg}, nil
}

// stopShared switches off collection in shared memory. It runs on any
// backend because the session's own may already be gone.
func (r *Runner) stopShared(ctx context.Context, id string) {
	cctx, cancel := r.cleanupContext(ctx)
	defer cancel()

	shared := r.backend.Shared()
	if err := shared.SetEnabledGlobal(cctx, false); err != nil {
		r.logger.Warn().Err(err).Str("trans_id", id).Msg("Failed to disable global profiling")
	}
	if err := shared.SetEnabledPID(cctx, 0); err != nil {
		r.logger.Warn().Err(err).Str("trans_id", id).Msg("Failed to disable pid profiling")
	}
}

// collectInterval converts a sample interval to whole seconds, rounding up.
func collectInterval(ms int) int {
	if ms <= 0 {
		return 0
	}
	return (ms + 999) / 1000
}
