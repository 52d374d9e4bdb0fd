package report

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

// fakeReader serves canned rows and records which calls were made.
type fakeReader struct {
	mu sync.Mutex

	ranked   []RankedRoutine
	refs     map[uint32]FunctionRef
	lines    []LineStat
	routines map[uint32]*RoutineInfo
	edges    []CallGraphEdge
	overflow OverflowFlags

	failOn  string
	failErr error

	topLimit      int
	overflowReads int
	lineReads     int
}

func (f *fakeReader) fail(call string) error {
	if f.failOn == call {
		return f.failErr
	}
	return nil
}

func (f *fakeReader) TopSelfTime(_ context.Context, _ Scope, limit int) ([]RankedRoutine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topLimit = limit
	if err := f.fail("top"); err != nil {
		return nil, err
	}
	out := append([]RankedRoutine(nil), f.ranked...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SelfTime > out[j].SelfTime })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReader) Metadata(_ context.Context, oids []uint32) ([]FunctionRef, error) {
	if err := f.fail("metadata"); err != nil {
		return nil, err
	}
	var out []FunctionRef
	for _, oid := range oids {
		if r, ok := f.refs[oid]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReader) LineStats(context.Context, Scope) ([]LineStat, error) {
	f.mu.Lock()
	f.lineReads++
	f.mu.Unlock()
	if err := f.fail("lines"); err != nil {
		return nil, err
	}
	return f.lines, nil
}

func (f *fakeReader) Routine(_ context.Context, _ Scope, oid uint32) (*RoutineInfo, error) {
	if err := f.fail("routine"); err != nil {
		return nil, err
	}
	return f.routines[oid], nil
}

func (f *fakeReader) CallGraph(context.Context, Scope) ([]CallGraphEdge, error) {
	if err := f.fail("callgraph"); err != nil {
		return nil, err
	}
	return f.edges, nil
}

func (f *fakeReader) OverflowFlags(context.Context) (OverflowFlags, error) {
	f.mu.Lock()
	f.overflowReads++
	f.mu.Unlock()
	if err := f.fail("overflow"); err != nil {
		return OverflowFlags{}, err
	}
	return f.overflow, nil
}

// newFakeReader builds a reader where every oid in selfTimes is a routine
// public.f<oid> with one line sample.
func newFakeReader(selfTimes map[uint32]int64) *fakeReader {
	f := &fakeReader{
		refs:     make(map[uint32]FunctionRef),
		routines: make(map[uint32]*RoutineInfo),
	}
	for oid, self := range selfTimes {
		name := "f" + strconv.FormatUint(uint64(oid), 10)
		f.ranked = append(f.ranked, RankedRoutine{OID: oid, SelfTime: self})
		f.refs[oid] = FunctionRef{OID: oid, Schema: "public", Name: name}
		f.routines[oid] = &RoutineInfo{OID: oid, Schema: "public", Name: name, SelfTime: self}
		f.lines = append(f.lines, LineStat{OID: oid, LineNumber: 1, ExecCount: 1, TotalTime: self, Source: "BEGIN"})
	}
	sort.Slice(f.ranked, func(i, j int) bool { return f.ranked[i].OID < f.ranked[j].OID })
	return f
}
