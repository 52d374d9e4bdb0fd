package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// sessionRecord is the serialized form of a Session. The target union is
// encoded as a kind tag plus the direct payload.
type sessionRecord struct {
	ID             string        `json:"id"`
	TargetKind     TargetKind    `json:"target_kind,omitempty"`
	Direct         *DirectTarget `json:"direct,omitempty"`
	ConnectionRefs []string      `json:"connection_refs,omitempty"`
	RunConfig      *RunConfig    `json:"run_config,omitempty"`
	ReportConfig   ReportConfig  `json:"report_config"`
	Arguments      []Argument    `json:"arguments,omitempty"`
	ServerID       string        `json:"server_id,omitempty"`
	DatabaseOID    uint32        `json:"database_oid,omitempty"`
	DatabaseName   string        `json:"database_name,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// MarshalJSON implements json.Marshaler.
func (s *Session) MarshalJSON() ([]byte, error) {
	rec := sessionRecord{
		ID:             s.ID,
		ConnectionRefs: s.ConnectionRefs,
		RunConfig:      s.RunConfig,
		ReportConfig:   s.ReportConfig,
		Arguments:      s.Arguments,
		ServerID:       s.ServerID,
		DatabaseOID:    s.DatabaseOID,
		DatabaseName:   s.DatabaseName,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if s.Target != nil {
		rec.TargetKind = s.Target.Kind()
		if d, ok := s.Target.(*DirectTarget); ok {
			rec.Direct = d
		}
	}
	return json.Marshal(rec)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Session) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	var target Target
	switch rec.TargetKind {
	case "":
	case KindIndirect:
		target = &IndirectTarget{}
	case KindDirect:
		if rec.Direct == nil {
			return fmt.Errorf("direct session %s has no target payload", rec.ID)
		}
		target = rec.Direct
	default:
		return fmt.Errorf("unknown target kind %q", rec.TargetKind)
	}

	*s = Session{
		ID:             rec.ID,
		Target:         target,
		ConnectionRefs: rec.ConnectionRefs,
		RunConfig:      rec.RunConfig,
		ReportConfig:   rec.ReportConfig,
		Arguments:      rec.Arguments,
		ServerID:       rec.ServerID,
		DatabaseOID:    rec.DatabaseOID,
		DatabaseName:   rec.DatabaseName,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
	return nil
}
