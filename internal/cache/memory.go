package cache

import (
	"context"
	"strings"
	"time"

	"bookmark-preview/internal/domain"
	"bookmark-preview/internal/pkg/metrics"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
)

// MemoryCache is a process-local preview cache. Expired entries are
// invisible immediately and swept by a janitor every sweep interval.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache whose entries default to ttl
func NewMemoryCache(ttl, sweep time.Duration) *MemoryCache {
	return &MemoryCache{
		items: gocache.New(ttl, sweep),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (domain.PreviewResult, bool) {
	item, found := c.items.Get(key)
	if !found {
		metrics.CacheMisses.With(prometheus.Labels{"cache": "memory"}).Inc()
		return domain.PreviewResult{}, false
	}
	metrics.CacheHits.With(prometheus.Labels{"cache": "memory"}).Inc()
	return item.(domain.PreviewResult).Clone(), true
}

func (c *MemoryCache) Set(_ context.Context, key string, value domain.PreviewResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.items.Set(key, value.Clone(), ttl)
	return nil
}

func (c *MemoryCache) InvalidatePrefix(_ context.Context, prefix string) (int, error) {
	removed := 0
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
			removed++
		}
	}
	metrics.CacheInvalidations.With(prometheus.Labels{"cache": "memory"}).Add(float64(removed))
	return removed, nil
}

// Len returns the number of entries, including expired ones not yet swept
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
