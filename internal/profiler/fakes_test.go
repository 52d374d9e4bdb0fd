package profiler

import (
	"context"
	"fmt"
	"sync"

	"github.com/bigsql/pgadmin4/internal/database"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/plprofiler"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/reportstore"
	"github.com/bigsql/pgadmin4/internal/session"
)

const testOID = 100

func testTarget() *session.DirectTarget {
	return &session.DirectTarget{
		OID:           testOID,
		SchemaOID:     2200,
		Schema:        "public",
		Name:          "compute",
		IsFunction:    true,
		Language:      "plpgsql",
		ReturnType:    "integer",
		ArgTypes:      []string{"integer", "text"},
		ArgNames:      []string{"n", ""},
		ArgModes:      []string{"i", "i"},
		DefaultValues: []string{"", "'x'::text"},
		Source:        "BEGIN\n  RETURN n;\nEND",
		RequiresInput: true,
	}
}

// fakeConn records engine calls and serves one profiled routine.
type fakeConn struct {
	mu    sync.Mutex
	calls []string

	libs    []string
	empty   bool
	execErr error
}

func (c *fakeConn) record(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *fakeConn) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeConn) TopSelfTime(_ context.Context, scope report.Scope, _ int) ([]report.RankedRoutine, error) {
	c.record("top:%s", scope)
	if c.empty {
		return nil, nil
	}
	return []report.RankedRoutine{{OID: testOID, SelfTime: 2000}}, nil
}

func (c *fakeConn) Metadata(context.Context, []uint32) ([]report.FunctionRef, error) {
	return []report.FunctionRef{{OID: testOID, Schema: "public", Name: "compute"}}, nil
}

func (c *fakeConn) LineStats(context.Context, report.Scope) ([]report.LineStat, error) {
	return []report.LineStat{
		{OID: testOID, LineNumber: 0, ExecCount: 1, TotalTime: 2_500_000, LongestTime: 2_500_000},
		{OID: testOID, LineNumber: 1, ExecCount: 1, TotalTime: 2000, LongestTime: 2000, Source: "RETURN n;"},
	}, nil
}

func (c *fakeConn) Routine(context.Context, report.Scope, uint32) (*report.RoutineInfo, error) {
	return &report.RoutineInfo{OID: testOID, Schema: "public", Name: "compute", Arguments: "n integer", ResultType: "integer", SelfTime: 2000}, nil
}

func (c *fakeConn) CallGraph(context.Context, report.Scope) ([]report.CallGraphEdge, error) {
	return []report.CallGraphEdge{{Stack: []uint32{testOID}, CallCount: 1, TotalTime: 2_500_000, SelfTime: 2000}}, nil
}

func (c *fakeConn) OverflowFlags(context.Context) (report.OverflowFlags, error) {
	c.record("overflow")
	return report.OverflowFlags{}, nil
}

func (c *fakeConn) SetEnabledLocal(_ context.Context, on bool) error {
	c.record("local:%t", on)
	return nil
}

func (c *fakeConn) SetEnabledGlobal(_ context.Context, on bool) error {
	c.record("global:%t", on)
	return nil
}

func (c *fakeConn) SetEnabledPID(_ context.Context, pid int32) error {
	c.record("pid:%d", pid)
	return nil
}

func (c *fakeConn) SetCollectInterval(_ context.Context, seconds int) error {
	c.record("interval:%d", seconds)
	return nil
}

func (c *fakeConn) ResetLocal(context.Context) error {
	c.record("reset_local")
	return nil
}

func (c *fakeConn) ResetShared(context.Context) error {
	c.record("reset_shared")
	return nil
}

func (c *fakeConn) PreloadLibraries(context.Context) ([]string, error) {
	return c.libs, nil
}

func (c *fakeConn) LoadTarget(_ context.Context, oid uint32) (*session.DirectTarget, error) {
	if oid != testOID {
		return nil, pgerrors.RoutineNotFound("fake.LoadTarget", oid)
	}
	return testTarget(), nil
}

func (c *fakeConn) CurrentDatabase(context.Context) (plprofiler.Database, error) {
	return plprofiler.Database{OID: 16384, Name: "app"}, nil
}

func (c *fakeConn) Execute(_ context.Context, _ *session.DirectTarget, args []session.Argument) (*plprofiler.ResultSet, error) {
	c.record("execute:%d", len(args))
	if c.execErr != nil {
		return nil, c.execErr
	}
	return &plprofiler.ResultSet{Columns: []string{"compute"}, Rows: [][]any{{int32(42)}}}, nil
}

// fakeBackend hands out fakeConns and doubles as the session manager's
// connection resolver.
type fakeBackend struct {
	mu     sync.Mutex
	shared *fakeConn
	conns  map[string]*fakeConn
	next   int

	// setup prepares each dedicated connection.
	setup func(*fakeConn)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{shared: &fakeConn{}, conns: make(map[string]*fakeConn)}
}

func (b *fakeBackend) ServerID() string { return "db.example:5432" }

func (b *fakeBackend) Shared() Conn { return b.shared }

func (b *fakeBackend) Acquire(context.Context) (string, Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	ref := fmt.Sprintf("conn-%d", b.next)
	c := &fakeConn{}
	if b.setup != nil {
		b.setup(c)
	}
	b.conns[ref] = c
	return ref, c, nil
}

func (b *fakeBackend) Conn(ref string) (Conn, bool) {
	c, ok := b.dedicated(ref)
	if !ok {
		return nil, false
	}
	return c, true
}

func (b *fakeBackend) dedicated(ref string) (*fakeConn, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.conns[ref]
	return c, ok
}

func (b *fakeBackend) Release(ref string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conns, ref)
}

func (b *fakeBackend) Lookup(ref string) (session.Connection, bool) {
	if _, ok := b.dedicated(ref); !ok {
		return nil, false
	}
	return &fakeHandle{backend: b, ref: ref}, true
}

type fakeHandle struct {
	backend *fakeBackend
	ref     string
}

func (h *fakeHandle) Cancel(context.Context) error { return nil }

func (h *fakeHandle) Release() error {
	h.backend.Release(h.ref)
	return nil
}

type fakeSaver struct {
	mu       sync.Mutex
	requests []reportstore.SaveRequest
	err      error
}

func (s *fakeSaver) Save(_ context.Context, req reportstore.SaveRequest) (*reportstore.StoredReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.requests = append(s.requests, req)
	return &reportstore.StoredReport{
		ID:              int64(len(s.requests)),
		Name:            req.Config.Name,
		IsDirect:        req.IsDirect,
		DatabaseName:    req.DatabaseName,
		DurationSeconds: req.DurationSeconds,
	}, nil
}

func (s *fakeSaver) Requests() []reportstore.SaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]reportstore.SaveRequest(nil), s.requests...)
}

type fakeArgs struct {
	mu    sync.Mutex
	saved map[database.RoutineKey][]*database.SavedArgument
	last  []database.ArgumentInput
}

func (a *fakeArgs) SavedArguments(_ context.Context, key database.RoutineKey) ([]*database.SavedArgument, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved[key], nil
}

func (a *fakeArgs) SaveArguments(_ context.Context, _ database.RoutineKey, inputs []database.ArgumentInput) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = inputs
	return nil
}
