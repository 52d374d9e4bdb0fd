package profiler

import (
	"context"

	"github.com/bigsql/pgadmin4/internal/plprofiler"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/session"
)

// Conn is one PostgreSQL backend as a run sees it.
type Conn interface {
	report.SampleReader

	SetEnabledLocal(ctx context.Context, on bool) error
	SetEnabledGlobal(ctx context.Context, on bool) error
	SetEnabledPID(ctx context.Context, pid int32) error
	SetCollectInterval(ctx context.Context, seconds int) error
	ResetLocal(ctx context.Context) error
	ResetShared(ctx context.Context) error
	PreloadLibraries(ctx context.Context) ([]string, error)

	LoadTarget(ctx context.Context, oid uint32) (*session.DirectTarget, error)
	CurrentDatabase(ctx context.Context) (plprofiler.Database, error)
	Execute(ctx context.Context, t *session.DirectTarget, args []session.Argument) (*plprofiler.ResultSet, error)
}

// Backend hands out connections to one server.
type Backend interface {
	// ServerID identifies the server in saved argument keys.
	ServerID() string
	// Shared runs calls on any backend; used for shared-memory controls.
	Shared() Conn
	// Acquire checks out a dedicated backend under a new ref.
	Acquire(ctx context.Context) (string, Conn, error)
	// Conn returns the backend checked out under ref.
	Conn(ref string) (Conn, bool)
	// Release returns ref's backend.
	Release(ref string)
}

type poolBackend struct {
	pool *plprofiler.Pool
}

// NewPoolBackend adapts a plprofiler pool.
func NewPoolBackend(pool *plprofiler.Pool) Backend {
	return &poolBackend{pool: pool}
}

func (b *poolBackend) ServerID() string { return b.pool.ServerID() }

func (b *poolBackend) Shared() Conn { return b.pool.Shared() }

func (b *poolBackend) Acquire(ctx context.Context) (string, Conn, error) {
	ref, conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return "", nil, err
	}
	return ref, conn, nil
}

func (b *poolBackend) Conn(ref string) (Conn, bool) {
	conn, ok := b.pool.Conn(ref)
	if !ok {
		return nil, false
	}
	return conn, true
}

func (b *poolBackend) Release(ref string) { b.pool.Release(ref) }
