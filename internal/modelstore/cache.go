package modelstore

import (
	"context"
	"sync"
	"time"
)

// Loader loads the latest version of a task.
type Loader interface {
	Load(ctx context.Context, task string) (*Loaded, error)
}

// CacheOption configures a LatestCache.
type CacheOption func(*LatestCache)

// WithMaxAge makes Get reload the entry once it is older than d, so versions
// published by other processes are picked up. d <= 0 keeps the entry until
// Refresh or Invalidate.
func WithMaxAge(d time.Duration) CacheOption {
	return func(c *LatestCache) { c.maxAge = d }
}

// WithCacheClock overrides the time source used for the max age.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *LatestCache) {
		if now != nil {
			c.now = now
		}
	}
}

// LatestCache keeps the latest loaded version of one task in memory. Reads
// share a read lock; a miss, an expired entry or Refresh takes the write lock
// to swap the entry. Failed loads are not cached.
type LatestCache struct {
	loader Loader
	task   string
	maxAge time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	entry    *Loaded
	filled   bool
	loadedAt time.Time
}

// NewLatestCache creates an empty cache for task.
func NewLatestCache(loader Loader, task string, opts ...CacheOption) *LatestCache {
	c := &LatestCache{loader: loader, task: task, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *LatestCache) fresh() bool {
	if !c.filled {
		return false
	}
	return c.maxAge <= 0 || c.now().Sub(c.loadedAt) < c.maxAge
}

// Get returns the cached version, loading it on first use and after the max
// age. A nil result means the task has never been trained. When an expired
// entry cannot be reloaded the stale entry is served and the reload is
// retried after another max age.
func (c *LatestCache) Get(ctx context.Context) (*Loaded, error) {
	c.mu.RLock()
	if c.fresh() {
		entry := c.entry
		c.mu.RUnlock()
		return entry, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fresh() {
		return c.entry, nil
	}
	loaded, err := c.loader.Load(ctx, c.task)
	if err != nil {
		if c.filled {
			c.loadedAt = c.now()
			return c.entry, nil
		}
		return nil, err
	}
	c.entry, c.filled, c.loadedAt = loaded, true, c.now()
	return loaded, nil
}

// Refresh reloads the latest version and swaps it in. On error the previous
// entry stays in place.
func (c *LatestCache) Refresh(ctx context.Context) (*Loaded, error) {
	loaded, err := c.loader.Load(ctx, c.task)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entry, c.filled, c.loadedAt = loaded, true, c.now()
	c.mu.Unlock()
	return loaded, nil
}

// Invalidate drops the entry so the next Get reloads.
func (c *LatestCache) Invalidate() {
	c.mu.Lock()
	c.entry, c.filled = nil, false
	c.mu.Unlock()
}
