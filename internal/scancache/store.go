package scancache

import (
	"context"
	"time"
)

// Store is the post-cache backend used by the scan pipeline. Keys are
// of the form "{kind}_{platform}_{accountID}". The in-memory
// implementation is the default; the Redis implementation is used when
// a Redis address is configured.
type Store interface {
	// Get unmarshals the cached value for key into dest. Returns a
	// not-found AppError on a miss.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores value under key with the given TTL. A zero TTL uses
	// the store's default.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes the key and reports whether it was present.
	// Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) (bool, error)

	// Close releases backend resources.
	Close() error
}
