// Package cache keeps recently computed query results in memory.
package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/golang/groupcache/lru"
)

const defaultMaxEntries = 256

// Cache stores values by key with least-recently-used eviction.
type Cache[V any] interface {
	// Get returns the cached value for key, if any.
	Get(ctx context.Context, key string) (V, bool)

	// Put stores v under key, evicting the least recently used entry when full.
	Put(ctx context.Context, key string, v V)

	// Purge drops every entry.
	Purge(ctx context.Context)

	Len() int
	Stats() Stats
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// LRU implements Cache on top of groupcache's lru.Cache, which is not safe
// for concurrent use on its own.
type LRU[V any] struct {
	mu     sync.Mutex
	lru    *lru.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRU creates a bounded cache.
func NewLRU[V any](opts ...Option) *LRU[V] {
	s := settings{maxEntries: defaultMaxEntries}
	for _, opt := range opts {
		opt(&s)
	}
	c := &LRU[V]{}
	if s.maxEntries > 0 {
		c.lru = lru.New(s.maxEntries)
	}
	return c
}

// Get returns the cached value for key.
func (c *LRU[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	if c.lru == nil {
		c.misses.Add(1)
		return zero, false
	}

	c.mu.Lock()
	raw, ok := c.lru.Get(key)
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return v, true
}

// Put stores v under key.
func (c *LRU[V]) Put(_ context.Context, key string, v V) {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	c.lru.Add(key, v)
	c.mu.Unlock()
}

// Purge drops every entry.
func (c *LRU[V]) Purge(_ context.Context) {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	c.lru.Clear()
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *LRU[V]) Len() int {
	if c.lru == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns hit and miss counters plus the current size.
func (c *LRU[V]) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: c.Len()}
}
