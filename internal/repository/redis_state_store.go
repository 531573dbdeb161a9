package repository

import (
	"context"

	"DigitPulse/internal/domain/repository"
	"DigitPulse/pkg/kv"
)

// RedisStateStore persists engine tables through the KV abstraction.
// Absent keys surface as kv.ErrNotFound and the engine falls back to
// defaults.
type RedisStateStore struct {
	store kv.Store
}

// NewRedisStateStore wraps a KV store as a StateStore.
func NewRedisStateStore(store kv.Store) repository.StateStore {
	return &RedisStateStore{store: store}
}

func (s *RedisStateStore) Load(ctx context.Context, key string, dest interface{}) error {
	return s.store.Get(ctx, key, dest)
}

func (s *RedisStateStore) Save(ctx context.Context, key string, value interface{}) error {
	return s.store.Set(ctx, key, value)
}

func (s *RedisStateStore) Health(ctx context.Context) error {
	return s.store.Health(ctx)
}

func (s *RedisStateStore) Close() error {
	return s.store.Close()
}
