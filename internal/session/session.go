// Package session tracks per-transaction profiling state across independent
// requests.
//
// A Session is owned by a Store under its transaction id and is only ever
// mutated through Manager.Update, which commits the whole record atomically.
package session

import (
	"time"
)

// TargetKind names the variant held by a Target.
type TargetKind string

const (
	KindDirect   TargetKind = "direct"
	KindIndirect TargetKind = "indirect"
)

// Target is either a DirectTarget or an IndirectTarget. The variant of a
// session never changes once set.
type Target interface {
	Kind() TargetKind
	isTarget()
}

// DirectTarget instruments a single routine during one caller-triggered
// execution.
type DirectTarget struct {
	OID           uint32   `json:"oid"`
	SchemaOID     uint32   `json:"schema_oid"`
	Schema        string   `json:"schema"`
	Name          string   `json:"name"`
	IsFunction    bool     `json:"is_function"`
	Language      string   `json:"language,omitempty"`
	ReturnType    string   `json:"return_type,omitempty"`
	ArgTypes      []string `json:"arg_types,omitempty"`
	ArgNames      []string `json:"arg_names,omitempty"`
	ArgModes      []string `json:"arg_modes,omitempty"`
	DefaultValues []string `json:"default_values,omitempty"`
	Source        string   `json:"source,omitempty"`
	RequiresInput bool     `json:"requires_input"`
}

func (*DirectTarget) Kind() TargetKind { return KindDirect }
func (*DirectTarget) isTarget()        {}

// IndirectTarget monitors a whole database session for a time window.
type IndirectTarget struct{}

func (*IndirectTarget) Kind() TargetKind { return KindIndirect }
func (*IndirectTarget) isTarget()        {}

// RequiresInput reports whether calling a routine with the given argument
// types and modes needs caller-supplied values. Out ('o') and table ('t')
// arguments never do; an absent mode list means every argument is input.
func RequiresInput(argTypes, argModes []string) bool {
	if len(argTypes) == 0 {
		return false
	}
	if len(argModes) == 0 {
		return true
	}
	for _, mode := range argModes {
		if mode != "o" && mode != "t" {
			return true
		}
	}
	return false
}

// RunConfig parameterizes an indirect monitoring window.
type RunConfig struct {
	DurationSeconds  int    `json:"duration_seconds"`
	SampleIntervalMS int    `json:"sample_interval_ms"`
	TargetPID        *int32 `json:"target_pid,omitempty"`
}

// Duration returns the monitoring window.
func (c *RunConfig) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

// Argument is one input value for a direct execution.
type Argument struct {
	Value        string `json:"value"`
	IsNull       bool   `json:"is_null"`
	IsExpression bool   `json:"is_expression"`
	UseDefault   bool   `json:"use_default"`
}

// Session is the state of one profiling transaction.
type Session struct {
	ID     string
	Target Target

	// ConnectionRefs are opaque handles owned by the connection collaborator.
	ConnectionRefs []string

	// RunConfig is set iff Target is an IndirectTarget.
	RunConfig    *RunConfig
	ReportConfig ReportConfig
	Arguments    []Argument

	ServerID     string
	DatabaseOID  uint32
	DatabaseName string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Direct returns the direct target, if any.
func (s *Session) Direct() (*DirectTarget, bool) {
	t, ok := s.Target.(*DirectTarget)
	return t, ok
}

// IsIndirect reports whether the session monitors a whole database session.
func (s *Session) IsIndirect() bool {
	_, ok := s.Target.(*IndirectTarget)
	return ok
}

// Clone returns a deep copy so callers never alias store-owned state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	switch t := s.Target.(type) {
	case *DirectTarget:
		d := *t
		d.ArgTypes = cloneStrings(t.ArgTypes)
		d.ArgNames = cloneStrings(t.ArgNames)
		d.ArgModes = cloneStrings(t.ArgModes)
		d.DefaultValues = cloneStrings(t.DefaultValues)
		c.Target = &d
	case *IndirectTarget:
		c.Target = &IndirectTarget{}
	}
	c.ConnectionRefs = cloneStrings(s.ConnectionRefs)
	if s.RunConfig != nil {
		rc := *s.RunConfig
		if s.RunConfig.TargetPID != nil {
			pid := *s.RunConfig.TargetPID
			rc.TargetPID = &pid
		}
		c.RunConfig = &rc
	}
	if s.Arguments != nil {
		c.Arguments = append([]Argument(nil), s.Arguments...)
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
