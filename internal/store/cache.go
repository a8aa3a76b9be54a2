package store

import (
	"sync"
	"time"

	"media-insights-go/internal/types"
)

// Cache is the in-process staging tier. It exists purely to mask first-write
// latency; reads trust it only within the freshness window so entries for
// records deleted elsewhere are not surfaced as found.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]cacheEntry
	freshness time.Duration
	now       func() time.Time
}

type cacheEntry struct {
	rec      *types.MediaRecord
	storedAt time.Time
}

// NewCache builds a cache trusting entries younger than freshness on
// cache-only reads.
func NewCache(freshness time.Duration) *Cache {
	return &Cache{
		entries:   map[string]cacheEntry{},
		freshness: freshness,
		now:       time.Now,
	}
}

// Put stores a copy reference keyed by record id, stamping the store time.
func (c *Cache) Put(rec *types.MediaRecord) {
	if rec == nil {
		return
	}
	c.mu.Lock()
	c.entries[rec.ID] = cacheEntry{rec: rec, storedAt: c.now()}
	c.mu.Unlock()
}

// GetFresh returns the entry only while it is inside the freshness window.
// Stale entries answer as not-found.
func (c *Cache) GetFresh(id string) (*types.MediaRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok || c.now().Sub(e.storedAt) > c.freshness {
		return nil, false
	}
	return e.rec, true
}

// ByOwner returns every cached record for the owner, fresh or stale.
// Reconciliation needs the full set to purge phantoms.
func (c *Cache) ByOwner(ownerID string) []*types.MediaRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*types.MediaRecord
	for _, e := range c.entries {
		if e.rec.OwnerID == ownerID {
			out = append(out, e.rec)
		}
	}
	return out
}

// FreshByOwner returns the owner's records still inside the freshness window.
func (c *Cache) FreshByOwner(ownerID string) []*types.MediaRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	var out []*types.MediaRecord
	for _, e := range c.entries {
		if e.rec.OwnerID == ownerID && now.Sub(e.storedAt) <= c.freshness {
			out = append(out, e.rec)
		}
	}
	return out
}

// Evict drops the entry for id, if any.
func (c *Cache) Evict(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
