// Package live caches the most recent observed last-traded-price per
// security. Feed collaborators write into it; the valuator reads from it.
package live

import (
	"sync"
	"time"

	"github.com/arthasutra/backend/internal/contracts"
	"github.com/arthasutra/backend/pkg/logger"
)

// DefaultFreshness is the window inside which a cached LTP counts as live.
const DefaultFreshness = 120 * time.Second

// Cache is an in-memory implementation of contracts.QuoteStore. Each
// security owns exactly one row which is replaced wholesale on update, so
// concurrent readers never observe a torn record.
type Cache struct {
	mu     sync.RWMutex
	quotes map[int64]contracts.LiveQuote
	logger *logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewCache creates an empty quote cache.
func NewCache(log *logger.Logger) *Cache {
	return &Cache{
		quotes: make(map[int64]contracts.LiveQuote),
		logger: log,
		now:    time.Now,
	}
}

// Upsert overwrites the quote row for a security. Creates the row if none
// exists; both timestamps are reset to now on every observation.
func (c *Cache) Upsert(securityID int64, price float64, source string) {
	now := c.now()

	c.mu.Lock()
	c.quotes[securityID] = contracts.LiveQuote{
		SecurityID: securityID,
		Price:      price,
		ObservedAt: now,
		UpdatedAt:  now,
		Source:     source,
	}
	c.mu.Unlock()

	c.logger.WithFields(map[string]interface{}{
		"security_id": securityID,
		"price":       price,
		"source":      source,
	}).Debug("Updated live quote")
}

// Get returns a copy of the cached quote, or nil if the security was never
// observed.
func (c *Cache) Get(securityID int64) *contracts.LiveQuote {
	c.mu.RLock()
	q, ok := c.quotes[securityID]
	c.mu.RUnlock()

	if !ok {
		return nil
	}
	return &q
}

// FreshPrice returns the cached price only if the observation is at most
// freshness old. Stale quotes are never returned as fresh.
func (c *Cache) FreshPrice(securityID int64, freshness time.Duration) *float64 {
	c.mu.RLock()
	q, ok := c.quotes[securityID]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	if c.now().Sub(q.ObservedAt) > freshness {
		return nil
	}

	price := q.Price
	return &price
}

// Len returns the number of cached quotes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.quotes)
}

// Stats summarizes the cache for the feeds endpoint.
func (c *Cache) Stats(freshness time.Duration) CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		TotalCount: len(c.quotes),
		BySource:   make(map[string]int),
	}

	now := c.now()
	for _, q := range c.quotes {
		if now.Sub(q.ObservedAt) <= freshness {
			stats.FreshCount++
		} else {
			stats.StaleCount++
		}
		stats.BySource[q.Source]++
	}

	return stats
}

// CacheStats represents cache statistics.
type CacheStats struct {
	TotalCount int            `json:"total_count"`
	FreshCount int            `json:"fresh_count"`
	StaleCount int            `json:"stale_count"`
	BySource   map[string]int `json:"by_source"`
}
