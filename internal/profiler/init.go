package profiler

import (
	"context"
	"fmt"

	"github.com/bigsql/pgadmin4/internal/database"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/plprofiler"
	"github.com/bigsql/pgadmin4/internal/session"
)

// InitDirect binds session id to routine oid. The extension must not be
// preloaded. A dedicated backend is checked out and attached to the session
// so that Close releases it; remembered argument values are restored.
func (r *Runner) InitDirect(ctx context.Context, id string, oid uint32) (*session.Session, error) {
	libs, err := r.backend.Shared().PreloadLibraries(ctx)
	if err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, "profiler.InitDirect", err)
	}
	if err := plprofiler.CheckDirect(libs); err != nil {
		return nil, err
	}

	conn, err := r.attach(ctx, id)
	if err != nil {
		return nil, err
	}

	target, err := conn.LoadTarget(ctx, oid)
	if err != nil {
		return nil, err
	}
	db, err := conn.CurrentDatabase(ctx)
	if err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, "profiler.InitDirect", err)
	}

	if _, err := r.sessions.InitDirect(ctx, id, target, r.defaults.DirectReportConfig(target.Name)); err != nil {
		return nil, err
	}

	var saved []session.Argument
	if r.args != nil {
		saved, err = r.loadArguments(ctx, routineKey(r.backend.ServerID(), db.OID, target), len(target.ArgTypes))
		if err != nil {
			r.logger.Warn().Err(err).Str("trans_id", id).Uint32("oid", oid).Msg("Failed to load saved arguments")
		}
	}

	s, err := r.sessions.Update(ctx, id, func(s *session.Session) error {
		s.ServerID = r.backend.ServerID()
		s.DatabaseOID = db.OID
		s.DatabaseName = db.Name
		s.Arguments = saved
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("trans_id", id).
		Uint32("oid", oid).
		Str("routine", target.Schema+"."+target.Name).
		Bool("requires_input", target.RequiresInput).
		Msg("Direct profiling session initialized")
	return s, nil
}

// InitIndirect binds session id to a monitoring window of the current
// database. The extension must be preloaded.
func (r *Runner) InitIndirect(ctx context.Context, id string, run session.RunConfig) (*session.Session, error) {
	const op = "profiler.InitIndirect"
	if r.maxDuration > 0 && run.Duration() > r.maxDuration {
		return nil, pgerrors.Errorf(pgerrors.KindConfiguration, op,
			"monitoring duration %s exceeds the maximum of %s", run.Duration(), r.maxDuration)
	}

	libs, err := r.backend.Shared().PreloadLibraries(ctx)
	if err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, op, err)
	}
	if err := plprofiler.CheckIndirect(libs); err != nil {
		return nil, err
	}

	conn, err := r.attach(ctx, id)
	if err != nil {
		return nil, err
	}
	db, err := conn.CurrentDatabase(ctx)
	if err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, op, err)
	}

	if _, err := r.sessions.InitIndirect(ctx, id, run, r.defaults.IndirectReportConfig(db.Name)); err != nil {
		return nil, err
	}
	s, err := r.sessions.Update(ctx, id, func(s *session.Session) error {
		s.ServerID = r.backend.ServerID()
		s.DatabaseOID = db.OID
		s.DatabaseName = db.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := r.logger.Info().
		Str("trans_id", id).
		Str("database", db.Name).
		Dur("duration", run.Duration()).
		Int("interval_ms", run.SampleIntervalMS)
	if run.TargetPID != nil {
		ev = ev.Int32("pid", *run.TargetPID)
	}
	ev.Msg("Indirect profiling session initialized")
	return s, nil
}

// attach checks out a backend for session id and records it on the session.
func (r *Runner) attach(ctx context.Context, id string) (Conn, error) {
	if _, err := r.sessions.Get(ctx, id); err != nil {
		return nil, err
	}

	ref, conn, err := r.backend.Acquire(ctx)
	if err != nil {
		return nil, pgerrors.E(pgerrors.KindDataSource, "profiler.attach", err)
	}
	if err := r.sessions.AttachConnection(ctx, id, ref); err != nil {
		r.backend.Release(ref)
		return nil, fmt.Errorf("failed to attach connection: %w", err)
	}
	return conn, nil
}

func routineKey(serverID string, databaseOID uint32, t *session.DirectTarget) database.RoutineKey {
	return database.RoutineKey{
		ServerID:    serverID,
		DatabaseOID: databaseOID,
		SchemaOID:   t.SchemaOID,
		FunctionOID: t.OID,
	}
}

// loadArguments turns remembered values into positional arguments. Entries
// beyond the routine's current arity are dropped.
func (r *Runner) loadArguments(ctx context.Context, key database.RoutineKey, arity int) ([]session.Argument, error) {
	saved, err := r.args.SavedArguments(ctx, key)
	if err != nil {
		return nil, err
	}

	var args []session.Argument
	for _, a := range saved {
		pos := int(a.ArgID)
		if pos < 0 || pos >= arity {
			continue
		}
		for len(args) <= pos {
			args = append(args, session.Argument{UseDefault: true})
		}
		args[pos] = session.Argument{
			Value:        a.Value.String,
			IsNull:       a.IsNull,
			IsExpression: a.IsExpression,
			UseDefault:   a.UseDefault,
		}
	}
	return args, nil
}
