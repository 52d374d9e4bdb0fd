package helpers

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// TimeRange bounds a listing. A zero Start or End leaves that side open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// TimeFlags holds the flag values for time range parsing.
type TimeFlags struct {
	Since string
	From  string
	To    string
}

// AddFlags adds time range flags to a FlagSet.
func (f *TimeFlags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.Since, "since", "", "Only reports created within this duration (e.g. 30m, 24h)")
	flags.StringVar(&f.From, "from", "", "Only reports created at or after this time (RFC3339, YYYY-MM-DD or 'now')")
	flags.StringVar(&f.To, "to", "", "Only reports created before this time (RFC3339, YYYY-MM-DD or 'now')")
}

// Parse resolves the flags against now. --from/--to take precedence over
// --since; with neither the range is unbounded.
func (f *TimeFlags) Parse(now time.Time) (TimeRange, error) {
	var r TimeRange

	if f.From != "" || f.To != "" {
		if f.From != "" {
			start, err := parseTime(f.From, now)
			if err != nil {
				return TimeRange{}, fmt.Errorf("invalid --from time: %w", err)
			}
			r.Start = start
		}
		if f.To != "" {
			end, err := parseTime(f.To, now)
			if err != nil {
				return TimeRange{}, fmt.Errorf("invalid --to time: %w", err)
			}
			r.End = end
		}
		if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
			return TimeRange{}, fmt.Errorf("end time cannot be before start time")
		}
		return r, nil
	}

	if f.Since != "" {
		d, err := time.ParseDuration(f.Since)
		if err != nil {
			return TimeRange{}, fmt.Errorf("invalid --since duration: %w", err)
		}
		if d < 0 {
			return TimeRange{}, fmt.Errorf("--since must not be negative")
		}
		r.Start = now.Add(-d)
	}
	return r, nil
}

func parseTime(s string, now time.Time) (time.Time, error) {
	if s == "now" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unsupported time format (use RFC3339)")
}
