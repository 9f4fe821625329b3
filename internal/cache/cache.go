// Package cache keeps loaded datasets in memory keyed by workbook path.
// An entry is served until its TTL expires or the file on disk changes.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"kpidash/domain/core"
	"kpidash/internal"
)

// DefaultTTL matches the dashboard's one hour refresh
const DefaultTTL = time.Hour

// LoadTimeout bounds a shared load, which outlives any single caller
const LoadTimeout = 2 * time.Minute

// LoadFunc produces a fresh value for a key
type LoadFunc[T any] func(ctx context.Context) (T, error)

type entry[T any] struct {
	value       T
	fingerprint core.FileFingerprint
	loadedAt    time.Time
}

// Stats counts cache activity
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Invalidations int64 `json:"invalidations"`
	Entries       int   `json:"entries"`
}

// Cache is a TTL cache whose keys are file paths
type Cache[T any] struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]*entry[T]
	group   singleflight.Group
	logger  *internal.Logger

	now         func() time.Time
	fingerprint func(path string) (core.FileFingerprint, error)

	hits, misses, invalidations atomic.Int64
}

// New creates a cache. ttl <= 0 uses DefaultTTL.
func New[T any](ttl time.Duration) *Cache[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[T]{
		ttl:         ttl,
		entries:     make(map[string]*entry[T]),
		logger:      internal.DefaultLogger.Named("Cache"),
		now:         time.Now,
		fingerprint: core.ComputeFileFingerprint,
	}
}

// TTL returns the configured time to live
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached value for path, or loads it. Concurrent misses for
// the same path share one load, which runs detached from ctx so one caller
// giving up does not fail the others. hit reports whether the value came
// from memory.
func (c *Cache[T]) Get(ctx context.Context, path string, load LoadFunc[T]) (value T, hit bool, err error) {
	if v, ok := c.lookup(path); ok {
		c.hits.Add(1)
		return v, true, nil
	}

	ch := c.group.DoChan(path, func() (interface{}, error) {
		// another caller may have filled the entry while we waited
		if v, ok := c.lookup(path); ok {
			return v, nil
		}
		c.misses.Add(1)

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()

		fp, _ := c.fingerprint(path)
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[path] = &entry[T]{value: v, fingerprint: fp, loadedAt: c.now()}
		c.mu.Unlock()
		c.logger.Debug("stored %s", path)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}

func (c *Cache[T]) lookup(path string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.loadedAt) >= c.ttl {
		c.logger.Debug("%s expired after %s", path, c.ttl)
		return zero, false
	}
	if fp, err := c.fingerprint(path); err != nil || fp != e.fingerprint {
		c.logger.Info("%s changed on disk, reloading", path)
		return zero, false
	}
	return e.value, true
}

// LoadedAt reports when the entry for path was stored
func (c *Cache[T]) LoadedAt(path string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[path]; ok {
		return e.loadedAt, true
	}
	return time.Time{}, false
}

// Invalidate drops the entry for path
func (c *Cache[T]) Invalidate(path string) {
	c.mu.Lock()
	_, ok := c.entries[path]
	delete(c.entries, path)
	c.mu.Unlock()
	if ok {
		c.invalidations.Add(1)
		c.logger.Info("invalidated %s", path)
	}
}

// Purge drops every entry
func (c *Cache[T]) Purge() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*entry[T])
	c.mu.Unlock()
	c.invalidations.Add(int64(n))
}

// Stats returns a snapshot of the counters
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
		Entries:       n,
	}
}
