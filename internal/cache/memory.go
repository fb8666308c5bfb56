// Package cache provides a small in-memory TTL cache.
package cache

import (
	"sync"
	"time"

	"songforge/internal/scoring"
)

// CacheEntry represents a cached item with expiration
type CacheEntry struct {
	Value      interface{}
	Expiration time.Time
}

// isExpired checks if the entry has expired at the given instant
func (e *CacheEntry) isExpired(now time.Time) bool {
	return now.After(e.Expiration)
}

// MemoryCache is a map guarded by an RWMutex with per-entry expiry and a
// background sweeper.
type MemoryCache struct {
	items map[string]*CacheEntry
	mutex sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryCache creates a cache whose entries live for ttl and starts the sweeper.
func NewMemoryCache(ttl time.Duration, sweepEvery time.Duration) *MemoryCache {
	cache := &MemoryCache{
		items: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if sweepEvery > 0 {
		go cache.cleanupExpired(sweepEvery)
	}

	return cache
}

// Set stores a value in the cache
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheEntry{
		Value:      value,
		Expiration: c.now().Add(c.ttl),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.items[key]
	if !exists || entry.isExpired(c.now()) {
		return nil, false
	}

	return entry.Value, true
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
}

// Size returns the number of items in the cache, expired or not
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.items)
}

// Stop ends the background sweeper. Safe to call more than once.
func (c *MemoryCache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

// sweep removes expired entries
func (c *MemoryCache) sweep() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.items {
		if entry.isExpired(now) {
			delete(c.items, key)
		}
	}
}

// cleanupExpired removes expired entries periodically
func (c *MemoryCache) cleanupExpired(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// AnalysisCache stores theme analyses keyed by lyrics digest
type AnalysisCache struct {
	*MemoryCache
}

// NewAnalysisCache creates an analysis cache with the given lifetime.
func NewAnalysisCache(ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{
		MemoryCache: NewMemoryCache(ttl, 5*time.Minute),
	}
}

// SetAnalysis caches an analysis
func (ac *AnalysisCache) SetAnalysis(key string, analysis scoring.Analysis) {
	ac.Set(key, analysis)
}

// GetAnalysis retrieves a cached analysis
func (ac *AnalysisCache) GetAnalysis(key string) (scoring.Analysis, bool) {
	value, exists := ac.Get(key)
	if !exists {
		return scoring.Analysis{}, false
	}

	analysis, ok := value.(scoring.Analysis)
	return analysis, ok
}
