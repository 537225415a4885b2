package scancache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clipscommerce/socialscan/pkg/errors"
)

// RedisStore backs the post cache with Redis so cached fetches survive
// restarts and are shared across instances. Redis expiry handles TTLs;
// LRU pressure is delegated to the server's maxmemory policy.
type RedisStore struct {
	client     *redis.Client
	defaultTTL time.Duration
	keyPrefix  string
}

// RedisConfig holds Redis store configuration.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	DefaultTTL time.Duration
	KeyPrefix  string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 30 * time.Minute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "socialscan:"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.NewCacheError("failed to connect to redis").WithCause(err)
	}

	return &RedisStore{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
		keyPrefix:  cfg.KeyPrefix,
	}, nil
}

// Get unmarshals the cached value for key into dest.
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err == redis.Nil {
		return errors.NewNotFoundError("cache key " + key)
	}
	if err != nil {
		return errors.NewCacheError("failed to get cache value").WithCause(err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return errors.NewCacheError("failed to deserialize cached value").WithCause(err)
	}
	return nil
}

// Set stores value under key with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("failed to serialize cache value").WithCause(err)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if err := s.client.Set(ctx, s.keyPrefix+key, data, ttl).Err(); err != nil {
		return errors.NewCacheError("failed to set cache value").WithCause(err)
	}
	return nil
}

// Delete removes the key and reports whether it was present.
func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.keyPrefix+key).Result()
	if err != nil {
		return false, errors.NewCacheError("failed to delete cache key").WithCause(err)
	}
	return n > 0, nil
}

// Health pings Redis.
func (s *RedisStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return errors.NewCacheError("redis health check failed").WithCause(err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
