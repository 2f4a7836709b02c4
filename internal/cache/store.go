package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"amber/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Store wraps an optional Redis client. A nil client turns every operation into a no-op
// (reads miss, writes succeed) so callers never branch on Redis availability.
type Store struct {
	rdb *redis.Client
}

// NewStore returns a Store backed by rdb, which may be nil.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Client exposes the underlying client, possibly nil.
func (s *Store) Client() *redis.Client {
	if s == nil {
		return nil
	}
	return s.rdb
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if s.Client() == nil {
		return false, nil
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if s.Client() == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, ttl).Err()
}

// Aside tries Redis first and on a miss calls fetch, which must populate dest,
// then stores dest with ttl. Cache failures degrade to a plain fetch.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
	return nil
}

// Invalidate removes keys, ignoring failures.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if s.Client() == nil || len(keys) == 0 {
		return
	}
	s.rdb.Del(ctx, keys...)
}

// Mark sets a flag key that expires after ttl. Non-positive ttl is a no-op.
func (s *Store) Mark(ctx context.Context, key string, ttl time.Duration) error {
	if s.Client() == nil || ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, key, "1", ttl).Err()
}

// MarkIfAbsent sets the flag only when it does not exist yet and reports whether it did.
// Without Redis it always reports true.
func (s *Store) MarkIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.Client() == nil {
		return true, nil
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.rdb.SetNX(ctx, key, "1", ttl).Result()
}

// Exists reports whether key is set; without Redis nothing exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if s.Client() == nil {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, key).Result()
	return n > 0, err
}
