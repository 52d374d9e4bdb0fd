package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// Store is the Transaction Store: a registry of Sessions keyed by transaction
// id. Implementations return copies, never store-owned values.
type Store interface {
	// Insert adds s unless its id is taken. It reports whether s was stored.
	Insert(ctx context.Context, s *Session) (bool, error)

	// Get returns the last committed Session, or a NotConnected error.
	Get(ctx context.Context, id string) (*Session, error)

	// Update applies fn to the current Session and commits the result.
	// Updates to one id are totally ordered. An error from fn aborts the
	// update and is returned unchanged.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)

	// Delete atomically removes id and returns the Session it held, or nil
	// when none was present. Updates racing with Delete either commit before
	// it, and are part of the returned Session, or fail with NotConnected.
	Delete(ctx context.Context, id string) (*Session, error)

	// IDs lists live transaction ids.
	IDs(ctx context.Context) ([]string, error)
}

func notConnected(op, id string) error {
	return &pgerrors.Error{Kind: pgerrors.KindNotConnected, Op: op, Err: fmt.Errorf("transaction %s", id)}
}

// MemoryStore is an in-process Store guarded by a single registry lock.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) Insert(_ context.Context, s *Session) (bool, error) {
	if s == nil || s.ID == "" {
		return false, fmt.Errorf("session id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return false, nil
	}
	m.sessions[s.ID] = s.Clone()
	return true, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, notConnected("session.Get", id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(*Session) error) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[id]
	if !ok {
		return nil, notConnected("session.Update", id)
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.sessions[id] = next
	return next.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	delete(m.sessions, id)
	return s, nil
}

func (m *MemoryStore) IDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
