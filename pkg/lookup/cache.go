package lookup

import (
	"context"
	"sync"

	"github.com/goliatone/go-transfer/pkg/lifecycle"
)

// Cache memoizes registry resolutions per location. Entries are keyed by
// location identity, never by transaction, and remain valid only while the
// type-tag observed at the location stays the same. Both lifecycle
// availability signals (backing object appeared or disappeared at a
// location) discard the entry; there is no reference-counted eviction, only
// explicit invalidation plus an optional size bound with FIFO eviction.
type Cache[L comparable, K comparable, P any] struct {
	mu       sync.Mutex
	registry *Registry[K, P]
	keyAt    func(L) (K, bool)
	entries  map[L]cacheEntry[K, P]
	order    []L
	limit    int
}

type cacheEntry[K comparable, P any] struct {
	key   K
	value P
}

// CacheOption configures a Cache.
type CacheOption[L comparable, K comparable, P any] func(*Cache[L, K, P])

// WithCacheLimit bounds the number of memoized locations; the oldest entry
// is evicted first. Zero or negative means unbounded.
func WithCacheLimit[L comparable, K comparable, P any](limit int) CacheOption[L, K, P] {
	return func(c *Cache[L, K, P]) {
		c.limit = limit
	}
}

// NewCache constructs a cache over registry. keyAt reports the type-tag
// currently present at a location, or ok == false when the location has no
// backing object.
func NewCache[L comparable, K comparable, P any](registry *Registry[K, P], keyAt func(L) (K, bool), opts ...CacheOption[L, K, P]) *Cache[L, K, P] {
	c := &Cache[L, K, P]{
		registry: registry,
		keyAt:    keyAt,
		entries:  make(map[L]cacheEntry[K, P]),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Get resolves the provider instance serving the location, consulting the
// memoized entry when the location's type-tag has not changed.
func (c *Cache[L, K, P]) Get(location L) (P, bool) {
	var zero P
	key, ok := c.keyAt(location)
	if !ok {
		c.Invalidate(location)
		return zero, false
	}

	c.mu.Lock()
	if entry, ok := c.entries[location]; ok && entry.key == key {
		c.mu.Unlock()
		return entry.value, true
	}
	c.mu.Unlock()

	value, found := c.registry.Find(key, location)
	if !found {
		return zero, false
	}
	c.store(location, cacheEntry[K, P]{key: key, value: value})
	return value, true
}

func (c *Cache[L, K, P]) store(location L, entry cacheEntry[K, P]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[location]; !exists {
		c.order = append(c.order, location)
		if c.limit > 0 && len(c.order) > c.limit {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[location] = entry
}

// Invalidate discards the memoized entry for a location.
func (c *Cache[L, K, P]) Invalidate(location L) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[location]; !ok {
		return
	}
	delete(c.entries, location)
	for i, loc := range c.order {
		if loc == location {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// InvalidateAll discards every memoized entry.
func (c *Cache[L, K, P]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[L]cacheEntry[K, P])
	c.order = nil
}

// Len reports the number of memoized locations.
func (c *Cache[L, K, P]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Hook returns a lifecycle hook that invalidates the cache on both
// availability signals. Events whose location is not an L are ignored.
func (c *Cache[L, K, P]) Hook() lifecycle.HookFunc {
	return func(_ context.Context, event lifecycle.Event) error {
		if event.Kind != lifecycle.KindAvailable && event.Kind != lifecycle.KindUnavailable {
			return nil
		}
		location, ok := event.Location.(L)
		if !ok {
			return nil
		}
		c.Invalidate(location)
		return nil
	}
}
