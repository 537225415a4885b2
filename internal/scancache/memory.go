package scancache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clipscommerce/socialscan/pkg/cache"
	"github.com/clipscommerce/socialscan/pkg/errors"
)

// MemoryStore is the default post-cache backend, built on the in-process
// eviction cache. Values are stored as JSON so the Memory and Redis
// backends are interchangeable.
type MemoryStore struct {
	cache *cache.Cache[string, []byte]
}

// NewMemoryStore creates an in-memory store with the given capacity and
// default TTL.
func NewMemoryStore(capacity int, defaultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: cache.New[string, []byte](cache.Config{
			Capacity:   capacity,
			DefaultTTL: defaultTTL,
		}),
	}
}

// Get unmarshals the cached value for key into dest.
func (s *MemoryStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := s.cache.Get(key)
	if !ok {
		return errors.NewNotFoundError("cache key " + key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.NewCacheError("failed to deserialize cached value").WithCause(err)
	}
	return nil
}

// Set stores value under key with the given TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("failed to serialize cache value").WithCause(err)
	}
	if ttl <= 0 {
		s.cache.Set(key, data)
	} else {
		s.cache.SetWithTTL(key, data, ttl)
	}
	return nil
}

// Delete removes the key and reports whether it was present.
func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	return s.cache.Delete(key), nil
}

// Sweep eagerly removes expired entries and returns how many were
// dropped. Bounds memory held by entries that are never re-read.
func (s *MemoryStore) Sweep() int {
	return s.cache.Sweep()
}

// Health always succeeds for the in-memory store.
func (s *MemoryStore) Health(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	s.cache.Clear()
	return nil
}
