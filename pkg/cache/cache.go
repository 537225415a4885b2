// Package cache provides a bounded generic key/value store with per-entry
// TTL and strict least-recently-used eviction. It is the foundational
// primitive shared by the scan caches; all operations are safe for
// concurrent use.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Config holds cache configuration.
type Config struct {
	// Capacity is the maximum number of entries held after any Set.
	Capacity int
	// DefaultTTL applies to entries stored without an explicit TTL.
	// Zero means entries do not expire.
	DefaultTTL time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		Capacity:   1000,
		DefaultTTL: 1 * time.Hour,
	}
}

// Stats holds cache operation counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero => no expiry
}

// Cache is a bounded TTL+LRU cache. The recency list front holds the most
// recently accessed entry; eviction removes from the back.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	config  Config
	entries map[K]*list.Element
	order   *list.List
	stats   Stats

	// now is swappable for tests.
	now func() time.Time
}

// New creates a cache with the given configuration.
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.Capacity <= 0 {
		config.Capacity = DefaultConfig().Capacity
	}
	return &Cache[K, V]{
		config:  config,
		entries: make(map[K]*list.Element),
		order:   list.New(),
		now:     time.Now,
	}
}

// Get returns the value for key. An expired entry is removed as a side
// effect and reported as absent. A hit refreshes the key's recency.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return zero, false
	}
	ent := el.Value.(*entry[K, V])
	if c.expired(ent) {
		c.remove(el)
		c.stats.Expired++
		c.stats.Misses++
		return zero, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return ent.value, true
}

// Set stores value under key with the configured default TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.SetWithTTL(key, value, c.config.DefaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL, overriding the
// default. A non-positive ttl stores the entry without expiry. If the
// instance would exceed its capacity, the least-recently-used entry is
// evicted first.
func (c *Cache[K, V]) SetWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.now().Add(ttl)
	}

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*entry[K, V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.config.Capacity {
		c.evictOldest()
	}
	el := c.order.PushFront(&entry[K, V]{key: key, value: value, expiresAt: expiresAt})
	c.entries[key] = el
}

// Delete removes a key. Deleting an absent key is a no-op returning false.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.remove(el)
	return true
}

// Has reports whether key is present and not expired. It does not refresh
// recency, but does remove an expired entry it observes.
func (c *Cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	ent := el.Value.(*entry[K, V])
	if c.expired(ent) {
		c.remove(el)
		c.stats.Expired++
		return false
	}
	return true
}

// Len returns the current entry count, including entries that have expired
// but have not yet been observed by a read or sweep.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*list.Element)
	c.order.Init()
}

// Keys returns a snapshot of all non-expired keys.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	now := c.now()
	for el := c.order.Front(); el != nil; el = el.Next() {
		ent := el.Value.(*entry[K, V])
		if !ent.expiresAt.IsZero() && !ent.expiresAt.After(now) {
			continue
		}
		keys = append(keys, ent.key)
	}
	return keys
}

// Sweep eagerly removes all expired entries and returns how many were
// removed. Expiry is enforced lazily on read regardless; the sweep only
// bounds memory held by entries that are never re-read.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*entry[K, V])) {
			c.remove(el)
			c.stats.Expired++
			removed++
		}
		el = next
	}
	return removed
}

// Stats returns a copy of the operation counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Cache[K, V]) expired(ent *entry[K, V]) bool {
	return !ent.expiresAt.IsZero() && !ent.expiresAt.After(c.now())
}

func (c *Cache[K, V]) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	c.remove(el)
	c.stats.Evictions++
}

func (c *Cache[K, V]) remove(el *list.Element) {
	ent := el.Value.(*entry[K, V])
	delete(c.entries, ent.key)
	c.order.Remove(el)
}
