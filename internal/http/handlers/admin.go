package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"bookmark-preview/internal/cache"
	"bookmark-preview/internal/domain"
)

// PlatformLister exposes the oEmbed platforms the resolver classifies against
type PlatformLister interface {
	Platforms() []domain.Platform
}

// QueueStatsReader reports job queue counters
type QueueStatsReader interface {
	GetQueueStats(ctx context.Context, jobType string) (map[string]int64, error)
}

// AdminHandler handles operator endpoints
type AdminHandler struct {
	previewCache domain.PreviewCache
	platforms    PlatformLister
	queueStats   QueueStatsReader // nil when Redis is not configured
	logger       *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	previewCache domain.PreviewCache,
	platforms PlatformLister,
	queueStats QueueStatsReader,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		previewCache: previewCache,
		platforms:    platforms,
		queueStats:   queueStats,
		logger:       logger,
	}
}

// InvalidateCache handles DELETE /api/v1/admin/cache?prefix=
//
// prefix is matched against the URL part of the cache key, so
// prefix=https://example.com drops every cached preview for that site and
// an empty prefix drops them all. The prefix goes through the same scheme and
// host folding as the keys themselves.
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	keyPrefix := cache.Key(prefix)

	removed, err := h.previewCache.InvalidatePrefix(r.Context(), keyPrefix)
	if err != nil {
		h.logger.Error("Failed to invalidate preview cache", "error", err, "prefix", prefix)
		http.Error(w, "Failed to invalidate cache: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.logger.Info("Preview cache invalidated via admin API",
		"prefix", prefix,
		"removed", removed,
	)

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"message":   "Preview cache invalidated",
		"prefix":    prefix,
		"removed":   removed,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ListPlatforms handles GET /api/v1/admin/platforms
func (h *AdminHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.platforms.Platforms())
}

// QueueStats handles GET /api/v1/admin/queue
func (h *AdminHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	if h.queueStats == nil {
		http.Error(w, "Job queue is not configured", http.StatusServiceUnavailable)
		return
	}

	stats, err := h.queueStats.GetQueueStats(r.Context(), domain.JobTypeRefreshPreview)
	if err != nil {
		h.logger.Error("Failed to get queue stats", "error", err)
		http.Error(w, "Failed to get queue stats", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"job_type": domain.JobTypeRefreshPreview,
		"stats":    stats,
	})
}
