package profiler

import (
	"context"
	"strconv"

	"github.com/bigsql/pgadmin4/internal/database"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/session"
)

// Parameter is one row of a session's parameter listing. Direct sessions
// list their routine arguments; indirect sessions list the monitoring
// window.
type Parameter struct {
	Name         string `json:"name"`
	Type         string `json:"type,omitempty"`
	Mode         string `json:"mode,omitempty"`
	Default      string `json:"default,omitempty"`
	Value        string `json:"value"`
	IsNull       bool   `json:"is_null,omitempty"`
	IsExpression bool   `json:"is_expression,omitempty"`
	UseDefault   bool   `json:"use_default,omitempty"`
}

// Source returns the source text of a direct session's routine.
func (r *Runner) Source(ctx context.Context, id string) (string, error) {
	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return "", err
	}
	t, ok := s.Direct()
	if !ok {
		return "", pgerrors.Errorf(pgerrors.KindConfiguration, "profiler.Source",
			"source is only available for direct profiling sessions")
	}
	return t.Source, nil
}

// Parameters lists the session's parameters.
func (r *Runner) Parameters(ctx context.Context, id string) ([]Parameter, error) {
	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if t, ok := s.Direct(); ok {
		params := make([]Parameter, len(t.ArgTypes))
		for i, typ := range t.ArgTypes {
			p := Parameter{Name: at(t.ArgNames, i), Type: typ, Mode: at(t.ArgModes, i), Default: at(t.DefaultValues, i)}
			if p.Name == "" {
				p.Name = "$" + strconv.Itoa(i+1)
			}
			if i < len(s.Arguments) {
				a := s.Arguments[i]
				p.Value, p.IsNull, p.IsExpression, p.UseDefault = a.Value, a.IsNull, a.IsExpression, a.UseDefault
			}
			params[i] = p
		}
		return params, nil
	}

	if s.IsIndirect() {
		run := s.RunConfig
		pid := ""
		if run.TargetPID != nil {
			pid = strconv.Itoa(int(*run.TargetPID))
		}
		return []Parameter{
			{Name: "Duration", Value: strconv.Itoa(run.DurationSeconds)},
			{Name: "Interval", Value: strconv.Itoa(run.SampleIntervalMS)},
			{Name: "PID", Value: pid, IsNull: run.TargetPID == nil},
		}, nil
	}

	return nil, pgerrors.Errorf(pgerrors.KindConfiguration, "profiler.Parameters", "session %s has no target", id)
}

// Duration returns the monitoring window of an indirect session in seconds.
func (r *Runner) Duration(ctx context.Context, id string) (int, error) {
	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !s.IsIndirect() {
		return 0, pgerrors.Errorf(pgerrors.KindConfiguration, "profiler.Duration",
			"duration is only available for indirect profiling sessions")
	}
	return s.RunConfig.DurationSeconds, nil
}

// ReportOptions returns the session's report options with display labels.
func (r *Runner) ReportOptions(ctx context.Context, id string) ([]session.ReportOption, error) {
	s, err := r.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.ReportConfig.Options(), nil
}

// SetReportOptions applies option/value pairs keyed by label or key.
// Nothing changes if any option is unknown.
func (r *Runner) SetReportOptions(ctx context.Context, id string, opts map[string]string) ([]session.ReportOption, error) {
	keyed := make(map[string]string, len(opts))
	for label, v := range opts {
		k, ok := session.OptionKey(label)
		if !ok {
			k = label
		}
		keyed[k] = v
	}

	s, err := r.sessions.SetReportConfig(ctx, id, keyed)
	if err != nil {
		return nil, err
	}
	return s.ReportConfig.Options(), nil
}

// SetArguments replaces the argument values of a direct session and
// remembers them for the routine.
func (r *Runner) SetArguments(ctx context.Context, id string, args []session.Argument) (*session.Session, error) {
	s, err := r.sessions.Update(ctx, id, func(s *session.Session) error {
		if _, ok := s.Direct(); !ok {
			return pgerrors.Errorf(pgerrors.KindConfiguration, "profiler.SetArguments",
				"arguments are only valid for direct profiling sessions")
		}
		s.Arguments = append([]session.Argument(nil), args...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if r.args == nil {
		return s, nil
	}
	t, _ := s.Direct()
	inputs := make([]database.ArgumentInput, len(args))
	for i, a := range args {
		in := database.ArgumentInput{ArgID: i, IsNull: a.IsNull, IsExpression: a.IsExpression, UseDefault: a.UseDefault}
		if !a.IsNull {
			in.Value = a.Value
		}
		inputs[i] = in
	}
	if err := r.args.SaveArguments(ctx, routineKey(s.ServerID, s.DatabaseOID, t), inputs); err != nil {
		r.logger.Warn().Err(err).Str("trans_id", id).Uint32("oid", t.OID).Msg("Failed to remember arguments")
	}
	return s, nil
}

func at(list []string, i int) string {
	if i < len(list) {
		return list[i]
	}
	return ""
}
