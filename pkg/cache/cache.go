// Package cache provides a small generic in-memory cache used by the engine
// for catalog snapshot reuse between refreshes.
package cache

import (
	"sync"
	"time"

	"github.com/Yiling-J/theine-go"
)

const defaultMaxEntries = 1000

// Cache defines the generic cache surface.
type Cache[T any] interface {

	// Get returns the value for the given key, if present and unexpired.
	Get(key string) (T, bool)

	// Set stores a value under key for the given TTL.
	Set(key string, value T, ttl time.Duration)

	// Delete removes the key, if present.
	Delete(key string)

	// Stop cleans up residual resources.
	Stop()
}

// InMemoryCache is a theine-backed Cache implementation.
type InMemoryCache[T any] struct {
	client     *theine.Cache[string, T]
	maxEntries int64
	closeOnce  *sync.Once
}

var _ Cache[any] = (*InMemoryCache[any])(nil)

// InMemoryCacheOpt configures an InMemoryCache.
type InMemoryCacheOpt[T any] func(*InMemoryCache[T])

// WithMaxEntries caps the number of cached entries before eviction starts.
func WithMaxEntries[T any](n int64) InMemoryCacheOpt[T] {
	return func(c *InMemoryCache[T]) {
		c.maxEntries = n
	}
}

// NewInMemoryCache builds an InMemoryCache.
func NewInMemoryCache[T any](opts ...InMemoryCacheOpt[T]) (*InMemoryCache[T], error) {
	c := &InMemoryCache[T]{
		maxEntries: defaultMaxEntries,
		closeOnce:  &sync.Once{},
	}
	for _, opt := range opts {
		opt(c)
	}

	client, err := theine.NewBuilder[string, T](c.maxEntries).Build()
	if err != nil {
		return nil, err
	}
	c.client = client
	return c, nil
}

func (c *InMemoryCache[T]) Get(key string) (T, bool) {
	return c.client.Get(key)
}

func (c *InMemoryCache[T]) Set(key string, value T, ttl time.Duration) {
	c.client.SetWithTTL(key, value, 1, ttl)
}

func (c *InMemoryCache[T]) Delete(key string) {
	c.client.Delete(key)
}

func (c *InMemoryCache[T]) Stop() {
	c.closeOnce.Do(func() {
		c.client.Close()
	})
}
