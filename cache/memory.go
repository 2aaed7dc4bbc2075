package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/smarte-commerce/ecomm-shipping-sub000/models"
)

// maxMemoryTTL bounds every entry; the per-entry expiry is checked on read.
const maxMemoryTTL = 24 * time.Hour

type memoryEntry struct {
	quote     models.AggregatedQuote
	expiresAt time.Time
}

// MemoryQuoteCache is an in-process LRU cache for single instances and tests.
type MemoryQuoteCache struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryQuoteCache creates a cache holding at most size quotes.
func NewMemoryQuoteCache(size int) *MemoryQuoteCache {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQuoteCache{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxMemoryTTL),
		now: time.Now,
	}
}

func (c *MemoryQuoteCache) Get(_ context.Context, key string) (*models.AggregatedQuote, bool, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false, nil
	}
	q := e.quote
	return &q, true, nil
}

func (c *MemoryQuoteCache) Set(_ context.Context, key string, quote *models.AggregatedQuote, ttl time.Duration) error {
	if quote == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c.lru.Add(key, memoryEntry{quote: *quote, expiresAt: c.now().Add(ttl)})
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryQuoteCache) Len() int { return c.lru.Len() }
