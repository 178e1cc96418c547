package lockscan

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultCacheCapacity is the number of results the cache created for
// Config.CacheEnabled holds before evicting the oldest.
const DefaultCacheCapacity = 4096

// Cache stores check results keyed by Fingerprint. Implementations must be
// safe for concurrent use and must not modify stored results.
type Cache interface {
	// Get returns the result stored under key, if any.
	Get(key string) (*Result, bool)

	// Set stores res under key. A TTL of 0 means no expiration.
	Set(key string, res *Result, ttl time.Duration)

	Delete(key string)
	Clear()
}

// CacheStats is implemented by caches that count their hits and misses
type CacheStats interface {
	Stats() CacheStatistics
}

// CacheStatistics contains cache performance metrics
type CacheStatistics struct {
	Hits      int64
	Misses    int64
	Size      int64
	Evictions int64
	HitRate   float64
}

type cachedResult struct {
	res     *Result
	stored  time.Time
	expires time.Time // zero when the entry never expires
}

func (e *cachedResult) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// MemoryCache is an in-memory result cache with per-entry TTL and an
// optional capacity.
type MemoryCache struct {
	mu       sync.RWMutex
	entries  map[string]*cachedResult
	capacity int

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewMemoryCache creates a cache holding at most capacity results. A
// capacity of 0 or less means unbounded.
func NewMemoryCache(capacity int) *MemoryCache {
	return &MemoryCache{
		entries:  make(map[string]*cachedResult),
		capacity: capacity,
	}
}

// Get returns the result stored under key. Expired entries count as misses
// and are dropped.
func (c *MemoryCache) Get(key string) (*Result, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	if entry.expired(time.Now()) {
		c.mu.Lock()
		if c.entries[key] == entry {
			delete(c.entries, key)
			c.evictions.Add(1)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.res, true
}

// Set stores res under key, evicting expired entries and then the oldest
// one when the cache is full.
func (c *MemoryCache) Set(key string, res *Result, ttl time.Duration) {
	now := time.Now()
	entry := &cachedResult{res: res, stored: now}
	if ttl > 0 {
		entry.expires = now.Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.capacity > 0 && len(c.entries) >= c.capacity {
		c.removeExpiredLocked(now)
		if len(c.entries) >= c.capacity {
			c.removeOldestLocked()
		}
	}
	c.entries[key] = entry
}

func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cachedResult)
	c.mu.Unlock()
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() CacheStatistics {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStatistics{
		Hits:      hits,
		Misses:    misses,
		Size:      int64(size),
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}

// Cleanup drops expired entries. Call it periodically when results are
// cached with a TTL and the cache is unbounded.
func (c *MemoryCache) Cleanup() {
	c.mu.Lock()
	c.removeExpiredLocked(time.Now())
	c.mu.Unlock()
}

func (c *MemoryCache) removeExpiredLocked(now time.Time) {
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			c.evictions.Add(1)
		}
	}
}

func (c *MemoryCache) removeOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for key, entry := range c.entries {
		if oldestKey == "" || entry.stored.Before(oldest) {
			oldestKey, oldest = key, entry.stored
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions.Add(1)
	}
}

var (
	_ Cache      = (*MemoryCache)(nil)
	_ CacheStats = (*MemoryCache)(nil)
)
