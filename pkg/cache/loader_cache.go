// Package cache provides a generic read-through cache: expiring LRU storage plus
// singleflight so concurrent misses for one key share a single load.
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// LoadFunc loads the value for key on a cache miss.
type LoadFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// ErrInvalidSize is returned by NewLoaderCache when maxEntries is not positive.
var ErrInvalidSize = errors.New("cache size must be positive")

// LoaderCache caches values loaded on demand. Keys are rendered with keyToString for
// both the LRU and the singleflight group.
//
// Entries expire after the configured TTL. Invalidate only reaches this process, so the
// TTL bounds how long another process can serve a value that was regenerated elsewhere.
//
// A load that overlaps an Invalidate of the same cache is returned to its callers
// but not stored, so a regenerated value is never shadowed by the one it replaced.
type LoaderCache[K comparable, V any] struct {
	lru         *expirable.LRU[string, V]
	group       singleflight.Group
	keyToString func(K) string
	generation  atomic.Uint64
}

// NewLoaderCache creates a cache holding at most maxEntries values, each for at most ttl.
// A zero ttl disables expiry.
func NewLoaderCache[K comparable, V any](
	maxEntries int, ttl time.Duration, keyToString func(K) string,
) (*LoaderCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, ErrInvalidSize
	}

	store := expirable.NewLRU[string, V](maxEntries, nil, ttl)

	return &LoaderCache[K, V]{lru: store, keyToString: keyToString}, nil
}

// Get returns the cached value for key or loads it.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load LoadFunc[K, V]) (V, error) {
	v, _, err := c.GetWithStats(ctx, key, load)

	return v, err
}

// GetWithStats is Get that also reports whether the value was served from the cache.
func (c *LoaderCache[K, V]) GetWithStats(ctx context.Context, key K, load LoadFunc[K, V]) (V, bool, error) {
	keyStr := c.keyToString(key)
	if v, ok := c.lru.Get(keyStr); ok {
		return v, true, nil
	}

	gen := c.generation.Load()

	res, err, _ := c.group.Do(keyStr, func() (any, error) {
		loaded, loadErr := load(ctx, key)
		if loadErr != nil {
			return nil, loadErr
		}

		if c.generation.Load() == gen {
			c.lru.Add(keyStr, loaded)
		}

		return loaded, nil
	})
	if err != nil {
		var zero V

		return zero, false, err //nolint:wrapcheck // load errors are returned as-is
	}

	return res.(V), false, nil //nolint:forcetypeassert // the group only stores V
}

// Invalidate drops key and makes the next Get start a fresh load.
func (c *LoaderCache[K, V]) Invalidate(key K) {
	keyStr := c.keyToString(key)

	c.generation.Add(1)
	c.group.Forget(keyStr)
	c.lru.Remove(keyStr)
}

// InvalidateAll drops every entry.
func (c *LoaderCache[K, V]) InvalidateAll() {
	c.generation.Add(1)
	c.lru.Purge()
}

// Len returns the number of cached entries.
func (c *LoaderCache[K, V]) Len() int {
	return c.lru.Len()
}
