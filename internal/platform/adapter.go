package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/clipscommerce/socialscan/pkg/errors"
	"github.com/clipscommerce/socialscan/pkg/types"
)

// Adapter fetches posts from a single social media platform. Fetches
// are expected to fail transiently; callers wrap them in retry and
// circuit breaker policies.
type Adapter interface {
	// Platform returns the platform this adapter serves.
	Platform() types.Platform

	// GetUserPosts returns the user's own posts within the lookback window.
	GetUserPosts(ctx context.Context, userID string, lookbackDays int) ([]types.Post, error)

	// GetCompetitorPosts returns a competitor account's posts within the
	// lookback window.
	GetCompetitorPosts(ctx context.Context, competitorID string, lookbackDays int) ([]types.Post, error)
}

// Registry holds the adapters available to the scan pipeline, keyed by
// platform.
type Registry struct {
	mu       sync.RWMutex
	adapters map[types.Platform]Adapter
}

// NewRegistry creates an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[types.Platform]Adapter),
	}
}

// Register adds an adapter, replacing any existing adapter for the same
// platform.
func (r *Registry) Register(adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[adapter.Platform()] = adapter
}

// Get returns the adapter for the platform.
func (r *Registry) Get(platform types.Platform) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[platform]
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("no adapter registered for platform %s", platform))
	}
	return adapter, nil
}

// Platforms returns the registered platforms.
func (r *Registry) Platforms() []types.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	platforms := make([]types.Platform, 0, len(r.adapters))
	for p := range r.adapters {
		platforms = append(platforms, p)
	}
	return platforms
}
