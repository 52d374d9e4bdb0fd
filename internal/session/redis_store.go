package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bigsql/pgadmin4/internal/retry"
)

// RedisStore shares Sessions between processes. Updates use WATCH/MULTI
// optimistic transactions and are retried when another writer wins.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  retry.Config
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces session keys.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTTL expires sessions idle for longer than ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore creates a Store backed by rdb.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		prefix: "pgprof:session:",
		retry:  retry.ConflictConfig(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (r *RedisStore) key(id string) string {
	return r.prefix + id
}

func (r *RedisStore) Insert(ctx context.Context, s *Session) (bool, error) {
	if s == nil || s.ID == "" {
		return false, fmt.Errorf("session id cannot be empty")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return false, fmt.Errorf("failed to encode session: %w", err)
	}
	ok, err := r.rdb.SetNX(ctx, r.key(s.ID), data, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to insert session: %w", err)
	}
	return ok, nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notConnected("session.Get", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return decodeSession(data)
}

func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	key := r.key(id)
	var committed *Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return notConnected("session.Update", id)
		}
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		s, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		out, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		committed = s
		return nil
	}

	err := retry.Do(ctx, r.retry, func() error {
		return r.rdb.Watch(ctx, txf, key)
	}, func(err error) bool {
		return errors.Is(err, redis.TxFailedErr)
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// Delete uses GETDEL so the removed record is exactly the last committed one.
func (r *RedisStore) Delete(ctx context.Context, id string) (*Session, error) {
	data, err := r.rdb.GetDel(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete session: %w", err)
	}
	return decodeSession(data)
}

func (r *RedisStore) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), r.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return ids, nil
}

func decodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &s, nil
}
