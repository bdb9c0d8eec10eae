// Package store holds the resolution cache backends.
package store

import (
	"context"
	"sync"
	"time"

	"devicelink/internal/resolution"
	"devicelink/pkg/platform/sentinel"
	"devicelink/pkg/requestcontext"
)

type cachedOutcome struct {
	outcome  resolution.Outcome
	storedAt time.Time
}

// InMemoryCache keeps outcomes for the lifetime of the process with TTL
// expiration. Expired entries are dropped lazily on read.
type InMemoryCache struct {
	mu       sync.RWMutex
	entries  map[resolution.Key]cachedOutcome
	cacheTTL time.Duration
}

func NewInMemoryCache(cacheTTL time.Duration) *InMemoryCache {
	return &InMemoryCache{
		entries:  make(map[resolution.Key]cachedOutcome),
		cacheTTL: cacheTTL,
	}
}

// Get returns sentinel.ErrNotFound if the key is absent or older than the TTL.
func (c *InMemoryCache) Get(ctx context.Context, key resolution.Key) (resolution.Outcome, error) {
	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return resolution.Outcome{}, sentinel.ErrNotFound
	}
	if requestcontext.Now(ctx).Sub(cached.storedAt) >= c.cacheTTL {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current.storedAt.Equal(cached.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return resolution.Outcome{}, sentinel.ErrNotFound
	}
	return cached.outcome, nil
}

func (c *InMemoryCache) Put(ctx context.Context, key resolution.Key, outcome resolution.Outcome) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedOutcome{outcome: outcome, storedAt: requestcontext.Now(ctx)}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
