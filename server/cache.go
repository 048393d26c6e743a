package server

import (
	"sync"
	"time"

	"github.com/chazu/swiftast/dump"
)

// cacheEntry is a parse result kept for reuse.
type cacheEntry struct {
	result   *dump.Result
	created  time.Time
	lastUsed time.Time
}

// ResultCache maps dump digests to parse results so repeated requests for
// the same text skip the pipeline.
type ResultCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

// NewResultCache creates an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[string]*cacheEntry)}
}

func cacheKey(digest string, strict bool) string {
	if strict {
		return digest + "/strict"
	}
	return digest
}

// Put stores a result under digest.
func (c *ResultCache) Put(digest string, strict bool, res *dump.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.entries[cacheKey(digest, strict)] = &cacheEntry{
		result:   res,
		created:  now,
		lastUsed: now,
	}
}

// Lookup returns the result stored under digest.
func (c *ResultCache) Lookup(digest string, strict bool) (*dump.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[cacheKey(digest, strict)]
	if !ok {
		return nil, false
	}
	e.lastUsed = time.Now()
	return e.result, true
}

// Len returns the number of cached results.
func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes results that haven't been accessed within the TTL.
func (c *ResultCache) Sweep(ttl time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for key, e := range c.entries {
		if e.lastUsed.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (c *ResultCache) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := c.Sweep(ttl); n > 0 {
					log.Debugf("cache sweep removed %d results", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
