package session

import (
	"slices"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// checkTransition rejects updates that would break the session invariants:
// the target variant is fixed once set, a direct target's argument
// introspection is immutable, and RunConfig is present iff indirect.
func checkTransition(before, after *Session) error {
	const op = "session.Update"

	if after.ID != before.ID {
		return pgerrors.Errorf(pgerrors.KindConfiguration, op, "transaction id cannot change")
	}

	if before.Target != nil {
		if after.Target == nil || after.Target.Kind() != before.Target.Kind() {
			return pgerrors.Errorf(pgerrors.KindConfiguration, op,
				"session is %s for its entire lifetime", before.Target.Kind())
		}
		if b, ok := before.Target.(*DirectTarget); ok {
			a := after.Target.(*DirectTarget)
			if a.OID != b.OID || a.RequiresInput != b.RequiresInput ||
				!slices.Equal(a.ArgTypes, b.ArgTypes) || !slices.Equal(a.ArgModes, b.ArgModes) {
				return pgerrors.Errorf(pgerrors.KindConfiguration, op,
					"routine and argument introspection of a direct target are immutable")
			}
		}
	}

	switch after.Target.(type) {
	case *IndirectTarget:
		if after.RunConfig == nil {
			return pgerrors.Errorf(pgerrors.KindConfiguration, op, "indirect session requires a run config")
		}
		if after.RunConfig.DurationSeconds <= 0 {
			return pgerrors.Errorf(pgerrors.KindConfiguration, op, "monitoring duration must be positive")
		}
		if after.RunConfig.SampleIntervalMS < 0 {
			return pgerrors.Errorf(pgerrors.KindConfiguration, op, "sample interval must not be negative")
		}
	default:
		if after.RunConfig != nil {
			return pgerrors.Errorf(pgerrors.KindConfiguration, op, "run config is only valid for indirect sessions")
		}
	}

	if len(after.Arguments) > 0 {
		d, ok := after.Direct()
		if !ok {
			return pgerrors.Errorf(pgerrors.KindConfiguration, op, "arguments are only valid for direct sessions")
		}
		if len(after.Arguments) > len(d.ArgTypes) {
			return pgerrors.Errorf(pgerrors.KindConfiguration, op,
				"%d arguments given for a routine with %d", len(after.Arguments), len(d.ArgTypes))
		}
	}
	return nil
}
