package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bookmark-preview/internal/domain"

	"github.com/redis/go-redis/v9"
)

// Tiered provides 2-tier caching: L1 in-memory + L2 Redis.
// L1 is fast but lost on restart. L2 survives restarts and is shared between
// the API and worker processes.
type Tiered struct {
	l1     domain.PreviewCache
	l2     domain.PreviewCache // nil if Redis unavailable
	l1TTL  time.Duration
	logger *slog.Logger
}

// NewTiered composes two caches. l2 may be nil. Entries back-filled from L2
// into L1 live for l1TTL.
func NewTiered(l1, l2 domain.PreviewCache, l1TTL time.Duration, logger *slog.Logger) *Tiered {
	return &Tiered{
		l1:     l1,
		l2:     l2,
		l1TTL:  l1TTL,
		logger: logger,
	}
}

// New builds the preview cache used by the binaries. An empty, invalid or
// unreachable Redis falls back to memory only.
func New(client *redis.Client, ttl, sweep time.Duration, logger *slog.Logger) domain.PreviewCache {
	memory := NewMemoryCache(ttl, sweep)
	if client == nil {
		logger.Info("cache: initialized", "ttl", ttl, "redis", false)
		return memory
	}
	logger.Info("cache: initialized", "ttl", ttl, "redis", true)
	return NewTiered(memory, NewRedisCache(client, logger), ttl, logger)
}

// Get tries L1, then L2. On L2 hit, populates L1.
func (t *Tiered) Get(ctx context.Context, key string) (domain.PreviewResult, bool) {
	if result, ok := t.l1.Get(ctx, key); ok {
		t.logger.Debug("cache: L1 hit", "key", key)
		return result, true
	}
	if t.l2 == nil {
		return domain.PreviewResult{}, false
	}

	result, ok := t.l2.Get(ctx, key)
	if !ok {
		return domain.PreviewResult{}, false
	}
	t.logger.Debug("cache: L2 hit", "key", key)
	if err := t.l1.Set(ctx, key, result, t.l1TTL); err != nil {
		t.logger.Debug("cache: L1 backfill failed", "key", key, "error", err)
	}
	return result, true
}

// Set stores value in both L1 and L2
func (t *Tiered) Set(ctx context.Context, key string, value domain.PreviewResult, ttl time.Duration) error {
	if err := t.l1.Set(ctx, key, value, ttl); err != nil {
		return fmt.Errorf("L1 set failed: %w", err)
	}
	if t.l2 != nil {
		if err := t.l2.Set(ctx, key, value, ttl); err != nil {
			return fmt.Errorf("L2 set failed: %w", err)
		}
	}
	return nil
}

// InvalidatePrefix removes matching keys from both tiers. The count is the
// larger of the two, since an entry usually lives in both.
func (t *Tiered) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	removed, err := t.l1.InvalidatePrefix(ctx, prefix)
	if err != nil {
		return removed, fmt.Errorf("L1 invalidate failed: %w", err)
	}
	if t.l2 == nil {
		return removed, nil
	}

	n, err := t.l2.InvalidatePrefix(ctx, prefix)
	if err != nil {
		return removed, fmt.Errorf("L2 invalidate failed: %w", err)
	}
	if n > removed {
		removed = n
	}
	return removed, nil
}
