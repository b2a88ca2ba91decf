// Package book holds the order-book snapshot cache and the aggressor-side
// classifier that fuses trade prints with book snapshots.
package book

import (
	"sync"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

// Cache holds the latest depth snapshot per instrument. Last write wins,
// no versioning. Each dispatcher or batch task owns its own Cache, so
// independent streams never cross-contaminate.
type Cache struct {
	mu    sync.RWMutex
	snaps map[string]*domain.DepthRecord
}

// NewCache creates an empty snapshot cache.
func NewCache() *Cache {
	return &Cache{snaps: make(map[string]*domain.DepthRecord)}
}

// Update replaces the cached snapshot for the record's instrument.
func (c *Cache) Update(d *domain.DepthRecord) {
	if d == nil {
		return
	}
	c.mu.Lock()
	c.snaps[d.StockID] = d
	c.mu.Unlock()
}

// Latest returns the most recent snapshot for an instrument, or nil when
// no depth record has arrived yet.
func (c *Cache) Latest(stockID string) *domain.DepthRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snaps[stockID]
}

// Len returns the number of instruments with a cached snapshot.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snaps)
}
