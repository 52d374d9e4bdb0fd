package plprofiler

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/bigsql/pgadmin4/internal/constants"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/session"
)

// Pool hands out dedicated connections addressable by opaque refs, so a
// session can hold a backend across requests and have it cancelled and
// released on close.
type Pool struct {
	pool     *pgxpool.Pool
	serverID string
	logger   zerolog.Logger

	mu    sync.Mutex
	conns map[string]*pgxpool.Conn
}

var _ session.ConnectionResolver = (*Pool)(nil)

// NewPool connects to dsn with at most maxConns connections.
func NewPool(ctx context.Context, dsn string, maxConns int32, logger zerolog.Logger) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	cc := cfg.ConnConfig
	return &Pool{
		pool:     pool,
		serverID: fmt.Sprintf("%s:%d", cc.Host, cc.Port),
		logger:   logger.With().Str("component", "pg_pool").Logger(),
		conns:    make(map[string]*pgxpool.Conn),
	}, nil
}

// ServerID identifies the server as host:port.
func (p *Pool) ServerID() string {
	return p.serverID
}

// Shared returns collaborators that run each call on any pooled backend.
// Only shared-memory controls and catalog reads belong here.
func (p *Pool) Shared() *Conn {
	return NewConn(p.pool)
}

// Acquire checks out a connection and registers it under a new ref. The
// returned Conn fails with NotConnected once the ref is released.
func (p *Pool) Acquire(ctx context.Context) (string, *Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	ref := uuid.NewString()
	p.mu.Lock()
	p.conns[ref] = conn
	p.mu.Unlock()

	p.logger.Debug().Str("conn_ref", ref).Uint32("pid", conn.Conn().PgConn().PID()).Msg("Connection acquired")
	return ref, NewConn(&refQuerier{pool: p, ref: ref}), nil
}

// Conn returns the collaborators for a checked-out ref.
func (p *Pool) Conn(ref string) (*Conn, bool) {
	if _, ok := p.checkedOut(ref); !ok {
		return nil, false
	}
	return NewConn(&refQuerier{pool: p, ref: ref}), true
}

func (p *Pool) checkedOut(ref string) (*pgxpool.Conn, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.conns[ref]
	return c, ok
}

// Lookup implements session.ConnectionResolver.
func (p *Pool) Lookup(ref string) (session.Connection, bool) {
	if _, ok := p.checkedOut(ref); !ok {
		return nil, false
	}
	return &pooledConn{pool: p, ref: ref}, true
}

// release unregisters ref. With discard the backend is closed instead of
// returned, since its session state (enabled collection, an aborted
// statement) is unknown.
func (p *Pool) release(ref string, discard bool) {
	p.mu.Lock()
	c, ok := p.conns[ref]
	delete(p.conns, ref)
	p.mu.Unlock()

	if !ok {
		return
	}
	if discard {
		raw := c.Hijack()
		ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultCloseTimeout)
		defer cancel()
		if err := raw.Close(ctx); err != nil {
			p.logger.Warn().Err(err).Str("conn_ref", ref).Msg("Failed to close discarded connection")
		}
		p.logger.Debug().Str("conn_ref", ref).Msg("Connection discarded")
		return
	}
	c.Release()
	p.logger.Debug().Str("conn_ref", ref).Msg("Connection released")
}

// Release returns ref's connection to the pool. Unknown refs are ignored.
func (p *Pool) Release(ref string) {
	p.release(ref, false)
}

// Close releases every checked-out connection and closes the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	refs := make([]string, 0, len(p.conns))
	for ref := range p.conns {
		refs = append(refs, ref)
	}
	p.mu.Unlock()

	for _, ref := range refs {
		p.release(ref, false)
	}
	p.pool.Close()
}

// pooledConn is the session.Connection view of a ref.
type pooledConn struct {
	pool *Pool
	ref  string
}

// Cancel asks the server to abort the backend's current statement.
func (c *pooledConn) Cancel(ctx context.Context) error {
	c.pool.mu.Lock()
	defer c.pool.mu.Unlock()

	conn, ok := c.pool.conns[c.ref]
	if !ok {
		return nil
	}
	if err := conn.Conn().PgConn().CancelRequest(ctx); err != nil {
		return fmt.Errorf("failed to cancel backend: %w", err)
	}
	return nil
}

// Release discards the backend.
func (c *pooledConn) Release() error {
	c.pool.release(c.ref, true)
	return nil
}

// refQuerier resolves its ref on every call so that work on a released
// connection fails cleanly instead of touching a returned backend.
type refQuerier struct {
	pool *Pool
	ref  string
}

func (r *refQuerier) gone() error {
	return pgerrors.Errorf(pgerrors.KindNotConnected, "plprofiler.Conn", "connection %s has been released", r.ref)
}

func (r *refQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c, ok := r.pool.checkedOut(r.ref)
	if !ok {
		return pgconn.CommandTag{}, r.gone()
	}
	return c.Exec(ctx, sql, args...)
}

func (r *refQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c, ok := r.pool.checkedOut(r.ref)
	if !ok {
		return nil, r.gone()
	}
	return c.Query(ctx, sql, args...)
}

func (r *refQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	c, ok := r.pool.checkedOut(r.ref)
	if !ok {
		return errRow{err: r.gone()}
	}
	return c.QueryRow(ctx, sql, args...)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
