package plprofiler

import (
	"context"

	"github.com/bigsql/pgadmin4/internal/session"
)

// Conn bundles the engine controls, the sample reader and routine access
// bound to one backend.
type Conn struct {
	*Engine
	*Reader
	q Querier
}

// NewConn binds the collaborators to q.
func NewConn(q Querier) *Conn {
	ext := newExtension(q)
	return &Conn{Engine: &Engine{q: q, ext: ext}, Reader: &Reader{q: q, ext: ext}, q: q}
}

// Querier returns the underlying query interface.
func (c *Conn) Querier() Querier {
	return c.q
}

// LoadTarget introspects routine oid.
func (c *Conn) LoadTarget(ctx context.Context, oid uint32) (*session.DirectTarget, error) {
	return LoadDirectTarget(ctx, c.q, oid)
}

// CurrentDatabase returns the database the backend is connected to.
func (c *Conn) CurrentDatabase(ctx context.Context) (Database, error) {
	return CurrentDatabase(ctx, c.q)
}

// Execute runs t with args in this backend.
func (c *Conn) Execute(ctx context.Context, t *session.DirectTarget, args []session.Argument) (*ResultSet, error) {
	return Execute(ctx, c.q, t, args)
}
