package geocode

import (
	"sync"
	"time"
)

type cacheEntry struct {
	loc       *Location
	expiresAt time.Time
}

// MemoryCache is a process-local TTL cache. Expired entries are dropped
// lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

var _ Cache = &MemoryCache{}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(address string) (*Location, bool) {
	c.mu.RLock()
	entry, ok := c.entries[address]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, address)
		c.mu.Unlock()
		return nil, false
	}
	return entry.loc, true
}

func (c *MemoryCache) Put(address string, loc *Location, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[address] = cacheEntry{
		loc:       loc,
		expiresAt: c.now().Add(ttl),
	}
}
