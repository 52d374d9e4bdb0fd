package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bigsql/pgadmin4/internal/constants"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// maxIDAttempts bounds id regeneration on collision.
const maxIDAttempts = 8

// Manager implements the Session lifecycle over a Store.
type Manager struct {
	store  Store
	conns  ConnectionResolver
	logger zerolog.Logger

	newID        func() string
	now          func() time.Time
	closeTimeout time.Duration

	// runs holds cancel funcs of in-flight runs per transaction id so Close
	// can interrupt them.
	mu      sync.Mutex
	runs    map[string]map[uint64]context.CancelFunc
	nextRun uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator overrides transaction id generation.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

// WithClock overrides the timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) { m.now = fn }
}

// WithCloseTimeout bounds the connection cancel issued by Close.
func WithCloseTimeout(d time.Duration) Option {
	return func(m *Manager) { m.closeTimeout = d }
}

// NewManager creates a Manager. conns may be nil when sessions never hold
// connections.
func NewManager(store Store, conns ConnectionResolver, logger zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		conns:        conns,
		logger:       logger.With().Str("component", "session_manager").Logger(),
		newID:        uuid.NewString,
		now:          time.Now,
		closeTimeout: constants.DefaultCloseTimeout,
		runs:         make(map[string]map[uint64]context.CancelFunc),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create allocates a fresh transaction id with an empty Session.
func (m *Manager) Create(ctx context.Context) (string, error) {
	now := m.now()
	for i := 0; i < maxIDAttempts; i++ {
		id := m.newID()
		ok, err := m.store.Insert(ctx, &Session{ID: id, CreatedAt: now, UpdatedAt: now})
		if err != nil {
			return "", fmt.Errorf("failed to create session: %w", err)
		}
		if ok {
			m.logger.Debug().Str("trans_id", id).Msg("Session created")
			return id, nil
		}
		m.logger.Warn().Str("trans_id", id).Msg("Transaction id collision, regenerating")
	}
	return "", fmt.Errorf("failed to allocate a unique transaction id after %d attempts", maxIDAttempts)
}

// List returns every live Session ordered by creation time. Sessions that
// close while listing are skipped.
func (m *Manager) List(ctx context.Context) ([]*Session, error) {
	ids, err := m.store.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := m.store.Get(ctx, id)
		if errors.Is(err, pgerrors.ErrNotConnected) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Get returns the most recently committed Session for id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.Get(ctx, id)
}

// Update applies mutator and commits the whole Session atomically. Updates
// that would change the target variant, alter a direct target's argument
// introspection, or pair RunConfig with a non-indirect target are rejected
// with a configuration error and nothing is committed.
func (m *Manager) Update(ctx context.Context, id string, mutator func(*Session) error) (*Session, error) {
	return m.store.Update(ctx, id, func(s *Session) error {
		before := s.Clone()
		if err := mutator(s); err != nil {
			return err
		}
		if err := checkTransition(before, s); err != nil {
			return err
		}
		s.UpdatedAt = m.now()
		return nil
	})
}

// InitDirect binds a new session to a routine.
func (m *Manager) InitDirect(ctx context.Context, id string, target *DirectTarget, cfg ReportConfig) (*Session, error) {
	return m.Update(ctx, id, func(s *Session) error {
		s.Target = target
		s.RunConfig = nil
		s.ReportConfig = cfg
		return nil
	})
}

// InitIndirect binds a new session to a monitoring window.
func (m *Manager) InitIndirect(ctx context.Context, id string, run RunConfig, cfg ReportConfig) (*Session, error) {
	return m.Update(ctx, id, func(s *Session) error {
		s.Target = &IndirectTarget{}
		s.RunConfig = &run
		s.ReportConfig = cfg
		return nil
	})
}

// SetReportConfig applies report options. Unknown keys are rejected.
func (m *Manager) SetReportConfig(ctx context.Context, id string, opts map[string]string) (*Session, error) {
	return m.Update(ctx, id, func(s *Session) error {
		return s.ReportConfig.Apply(opts)
	})
}

// AttachConnection records a connection ref on the session.
func (m *Manager) AttachConnection(ctx context.Context, id, ref string) error {
	_, err := m.Update(ctx, id, func(s *Session) error {
		for _, r := range s.ConnectionRefs {
			if r == ref {
				return nil
			}
		}
		s.ConnectionRefs = append(s.ConnectionRefs, ref)
		return nil
	})
	return err
}

// RunContext derives a context that Close cancels. The returned func must be
// called when the run finishes.
func (m *Manager) RunContext(ctx context.Context, id string) (context.Context, func(), error) {
	runCtx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	m.nextRun++
	token := m.nextRun
	if m.runs[id] == nil {
		m.runs[id] = make(map[uint64]context.CancelFunc)
	}
	m.runs[id][token] = cancel
	m.mu.Unlock()

	done := func() {
		m.mu.Lock()
		if runs, ok := m.runs[id]; ok {
			delete(runs, token)
			if len(runs) == 0 {
				delete(m.runs, id)
			}
		}
		m.mu.Unlock()
		cancel()
	}

	// Registered before the existence check: a Close that deletes the session
	// after this point also sees the run.
	if _, err := m.store.Get(ctx, id); err != nil {
		done()
		return nil, nil, err
	}
	return runCtx, done, nil
}

func (m *Manager) cancelRuns(id string) int {
	m.mu.Lock()
	runs := m.runs[id]
	delete(m.runs, id)
	m.mu.Unlock()

	for _, cancel := range runs {
		cancel()
	}
	return len(runs)
}

// Close tears down id: the Session is removed, in-flight runs are cancelled,
// and the connections of the removed record are cancelled and released.
// Closing an unknown id is a no-op. Connection failures are returned after the
// Session is removed.
func (m *Manager) Close(ctx context.Context, id string) error {
	logger := m.logger.With().Str("trans_id", id).Logger()

	s, delErr := m.store.Delete(ctx, id)

	// Runs registered from here on fail their existence check.
	if n := m.cancelRuns(id); n > 0 {
		logger.Debug().Int("runs", n).Msg("Cancelled in-flight runs")
	}

	if delErr != nil {
		return fmt.Errorf("failed to remove session: %w", delErr)
	}
	if s == nil {
		return nil
	}

	var errs []error
	for _, ref := range s.ConnectionRefs {
		if err := m.releaseConnection(ctx, ref); err != nil {
			logger.Warn().Err(err).Str("conn_ref", ref).Msg("Failed to release connection")
			errs = append(errs, fmt.Errorf("connection %s: %w", ref, err))
		}
	}

	logger.Debug().Msg("Session closed")
	return errors.Join(errs...)
}

func (m *Manager) releaseConnection(ctx context.Context, ref string) error {
	if m.conns == nil {
		return nil
	}
	conn, ok := m.conns.Lookup(ref)
	if !ok {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, m.closeTimeout)
	defer cancel()

	cancelErr := conn.Cancel(cctx)
	releaseErr := conn.Release()
	return errors.Join(cancelErr, releaseErr)
}

// CloseAllResult records the outcome of CloseAll per transaction id.
type CloseAllResult struct {
	Closed []string
	Failed map[string]error
}

// CloseAll closes every live session. Each close is attempted independently;
// failures are recorded and logged, never propagated.
func (m *Manager) CloseAll(ctx context.Context) (*CloseAllResult, error) {
	ids, err := m.store.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(ids)

	res := &CloseAllResult{Failed: make(map[string]error)}
	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil {
			m.logger.Error().Err(err).Str("trans_id", id).Msg("Failed to close session")
			res.Failed[id] = err
			continue
		}
		res.Closed = append(res.Closed, id)
	}
	return res, nil
}
