package render

import (
	"fmt"
	"io"

	"github.com/google/pprof/profile"

	"github.com/bigsql/pgadmin4/internal/report"
)

// Pprof writes the call graph as a gzipped pprof profile, so that
// `go tool pprof` can browse routine stacks. Each edge becomes one sample
// with its call count and self time; routines map to functions whose
// filename is their schema.
type Pprof struct{}

func (Pprof) Format() string    { return FormatPprof }
func (Pprof) Extension() string { return "pb.gz" }

func (Pprof) Render(w io.Writer, rep *report.Report, meta Meta) error {
	p := buildProfile(rep, meta)
	if err := p.CheckValid(); err != nil {
		return fmt.Errorf("invalid pprof profile: %w", err)
	}
	if err := p.Write(w); err != nil {
		return fmt.Errorf("failed to write pprof profile: %w", err)
	}
	return nil
}

func buildProfile(rep *report.Report, meta Meta) *profile.Profile {
	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "calls", Unit: "count"},
			{Type: "self_time", Unit: "microseconds"},
		},
		PeriodType:    &profile.ValueType{Type: "self_time", Unit: "microseconds"},
		Period:        1,
		DurationNanos: rep.TotalTime() * 1000,
	}
	if !meta.GeneratedAt.IsZero() {
		p.TimeNanos = meta.GeneratedAt.UnixNano()
	}
	if meta.Config.Title != "" {
		p.Comments = append(p.Comments, meta.Config.Title)
	}

	schemas := make(map[uint32]string, len(rep.FunctionDefs))
	starts := make(map[uint32]int64, len(rep.FunctionDefs))
	for _, d := range rep.FunctionDefs {
		schemas[d.OID] = d.Schema
		if len(d.Lines) > 0 {
			starts[d.OID] = int64(d.Lines[0].LineNumber)
		}
	}
	names := rep.Names()

	locations := make(map[uint32]*profile.Location)
	location := func(oid uint32) *profile.Location {
		if loc, ok := locations[oid]; ok {
			return loc
		}
		fn := &profile.Function{
			ID:         uint64(len(p.Function)) + 1,
			Name:       report.Label(names, oid),
			SystemName: fmt.Sprintf("%d", oid),
			Filename:   schemas[oid],
			StartLine:  starts[oid],
		}
		p.Function = append(p.Function, fn)

		loc := &profile.Location{
			ID:   uint64(len(p.Location)) + 1,
			Line: []profile.Line{{Function: fn, Line: starts[oid]}},
		}
		p.Location = append(p.Location, loc)
		locations[oid] = loc
		return loc
	}

	for _, e := range rep.CallGraph {
		if len(e.Stack) == 0 {
			continue
		}
		// pprof stacks are leaf first.
		locs := make([]*profile.Location, 0, len(e.Stack))
		for i := len(e.Stack) - 1; i >= 0; i-- {
			locs = append(locs, location(e.Stack[i]))
		}
		p.Sample = append(p.Sample, &profile.Sample{
			Location: locs,
			Value:    []int64{e.CallCount, e.SelfTime},
		})
	}
	return p
}
