package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookmark-preview/internal/domain"
	"bookmark-preview/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const scanBatchSize = 100

// RedisCache stores previews as JSON values in Redis
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache creates a preview cache on an existing client
func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (domain.PreviewResult, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("cache: redis get failed", "key", key, "error", err)
		}
		metrics.CacheMisses.With(prometheus.Labels{"cache": "redis"}).Inc()
		return domain.PreviewResult{}, false
	}

	var result domain.PreviewResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("cache: corrupt redis entry", "key", key, "error", err)
		metrics.CacheMisses.With(prometheus.Labels{"cache": "redis"}).Inc()
		return domain.PreviewResult{}, false
	}

	metrics.CacheHits.With(prometheus.Labels{"cache": "redis"}).Inc()
	return result, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value domain.PreviewResult, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal preview: %w", err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// InvalidatePrefix deletes matching keys with SCAN so the server is never
// blocked by a KEYS call on a large keyspace.
func (c *RedisCache) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	match := escapeGlob(prefix) + "*"
	removed := 0

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("failed to scan cache keys: %w", err)
		}

		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("failed to delete cache keys: %w", err)
			}
			removed += int(n)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	metrics.CacheInvalidations.With(prometheus.Labels{"cache": "redis"}).Add(float64(removed))
	return removed, nil
}

// escapeGlob quotes the characters Redis MATCH treats as glob syntax
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
