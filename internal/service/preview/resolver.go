package preview

import (
	"context"
	"log/slog"
	"time"

	"bookmark-preview/internal/cache"
	"bookmark-preview/internal/domain"
	"bookmark-preview/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution paths, used as the metrics label
const (
	pathCache  = "cache"
	pathOEmbed = "oembed"
	pathHTML   = "html"
	pathEmpty  = "empty"
)

// Resolver routes a URL to its oEmbed provider or the generic scraper and
// always produces a PreviewResult
type Resolver struct {
	registry *OEmbedRegistry
	oembed   *OEmbedResolver
	scraper  *Scraper
	cache    domain.PreviewCache // nil disables caching
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewResolver wires a resolver from its parts. previewCache may be nil.
func NewResolver(
	registry *OEmbedRegistry,
	oembed *OEmbedResolver,
	scraper *Scraper,
	previewCache domain.PreviewCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Resolver {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Resolver{
		registry: registry,
		oembed:   oembed,
		scraper:  scraper,
		cache:    previewCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// New creates a resolver over the built-in platforms, sharing one HTTP client
// between the oEmbed and HTML paths
func New(opts Options, previewCache domain.PreviewCache, logger *slog.Logger) *Resolver {
	opts = opts.withDefaults()
	client := newHTTPClient(opts.FetchTimeout)
	return NewResolver(
		NewOEmbedRegistry(),
		NewOEmbedResolver(client, opts, logger),
		NewScraper(client, opts, logger),
		previewCache,
		opts.CacheTTL,
		logger,
	)
}

// Registry exposes the platform classifier
func (r *Resolver) Registry() *OEmbedRegistry {
	return r.registry
}

// Resolve returns the best-effort preview for rawURL. It never fails: every
// error degrades to nil fields. The returned value is owned by the caller.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) domain.PreviewResult {
	return r.resolve(ctx, rawURL, true)
}

// Refresh resolves rawURL without reading the cache and replaces the cached
// entry with the fresh result
func (r *Resolver) Refresh(ctx context.Context, rawURL string) domain.PreviewResult {
	return r.resolve(ctx, rawURL, false)
}

func (r *Resolver) resolve(ctx context.Context, rawURL string, useCached bool) (result domain.PreviewResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Preview resolution panicked", "url", rawURL, "panic", rec)
			result = domain.PreviewResult{}
			r.count(pathEmpty)
		}
	}()

	key := cache.Key(rawURL)
	if r.cache != nil && useCached {
		if cached, ok := r.cache.Get(ctx, key); ok {
			r.count(pathCache)
			return cached.Clone()
		}
	}

	result, path := r.resolveUncached(ctx, rawURL)
	r.count(path)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, result, r.cacheTTL); err != nil {
			r.logger.Warn("Failed to cache preview", "url", rawURL, "error", err)
		}
	}
	return result.Clone()
}

func (r *Resolver) resolveUncached(ctx context.Context, rawURL string) (domain.PreviewResult, string) {
	if platform := r.registry.Match(rawURL); platform != nil {
		endpoint := r.registry.EndpointURL(platform, rawURL)

		r.logger.Debug("oEmbed platform matched",
			"platform", platform.ID,
			"url", rawURL,
			"endpoint", endpoint)

		result, err := r.oembed.Fetch(ctx, endpoint)
		if err == nil {
			return *result, pathOEmbed
		}

		metrics.PreviewFetchFailures.With(prometheus.Labels{"stage": pathOEmbed}).Inc()
		r.logger.Warn("oEmbed fetch failed, falling back to HTML scrape",
			"platform", platform.ID,
			"url", rawURL,
			"error", err)
	}

	result, err := r.scraper.Scrape(ctx, rawURL)
	if err != nil {
		metrics.PreviewFetchFailures.With(prometheus.Labels{"stage": pathHTML}).Inc()
		r.logger.Warn("Failed to scrape page", "url", rawURL, "error", err)
		return domain.PreviewResult{}, pathEmpty
	}
	return result, pathHTML
}

func (r *Resolver) count(path string) {
	metrics.PreviewsResolved.With(prometheus.Labels{"type": path}).Inc()
}
