package profiler

import (
	"context"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/plprofiler"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/reportstore"
)

// DirectResult is the outcome of a direct run.
type DirectResult struct {
	Result *plprofiler.ResultSet
	Report *reportstore.StoredReport
	// Profile is the aggregated report the artifact was rendered from.
	Profile *report.Report
}

// ExecuteDirect runs the session's routine once with its arguments under
// local collection, aggregates the local samples and saves the report.
// Local collection is switched off afterwards whatever happens.
func (r *Runner) ExecuteDirect(ctx context.Context, id string) (res *DirectResult, err error) {
	const op = "profiler.ExecuteDirect"
	defer func() { r.logFailure(err, id, "Direct profiling run failed") }()

	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	target, ok := s.Direct()
	if !ok {
		return nil, pgerrors.Errorf(pgerrors.KindConfiguration, op, "session %s is not a direct profiling session", id)
	}
	_, conn, err := r.conn(s, op)
	if err != nil {
		return nil, err
	}

	runCtx, done, err := r.sessions.RunContext(ctx, id)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := conn.SetEnabledLocal(runCtx, true); err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, op, err)
	}
	defer func() {
		cctx, cancel := r.cleanupContext(ctx)
		defer cancel()
		if err := conn.SetEnabledLocal(cctx, false); err != nil {
			r.logger.Warn().Err(err).Str("trans_id", id).Msg("Failed to disable local profiling")
		}
	}()

	if err := conn.ResetLocal(runCtx); err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, op, err)
	}
	if err := conn.SetCollectInterval(runCtx, 0); err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, op, err)
	}

	result, err := conn.Execute(runCtx, target, s.Arguments)
	if err != nil {
		return nil, runError(ctx, runCtx, op, err)
	}

	rep, err := r.aggregate(runCtx, conn, report.ScopeLocal)
	if err != nil {
		return nil, runError(ctx, runCtx, op, err)
	}

	saved, err := r.saver.Save(ctx, reportstore.SaveRequest{
		Report:          rep,
		Config:          s.ReportConfig,
		DatabaseName:    s.DatabaseName,
		IsDirect:        true,
		DurationSeconds: report.DurationSeconds(routineTotal(rep, target.OID)),
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("trans_id", id).
		Uint32("oid", target.OID).
		Int64("report_id", saved.ID).
		Int("rows", len(result.Rows)).
		Msg("Direct profiling run finished")
	return &DirectResult{Result: result, Report: saved, Profile: rep}, nil
}

// routineTotal is the total time of oid in rep. When the routine missed the
// top-K cut it is the inclusive time of its top-level calls, or 0 without any.
func routineTotal(rep *report.Report, oid uint32) int64 {
	for _, d := range rep.FunctionDefs {
		if d.OID == oid {
			return d.TotalTime
		}
	}
	var total int64
	for _, e := range rep.CallGraph {
		if len(e.Stack) == 1 && e.Stack[0] == oid {
			total += e.TotalTime
		}
	}
	return total
}

// runError reports a run interrupted by Close as NotConnected and keeps
// cancellation of the caller's own context as is.
func runError(ctx, runCtx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if runCtx.Err() != nil {
		return pgerrors.Errorf(pgerrors.KindNotConnected, op, "session was closed during the run")
	}
	return err
}
