package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"bookmark-preview/internal/domain"

	"github.com/google/uuid"
)

// JobProcessor handles the worker's job types
type JobProcessor struct {
	logger       *slog.Logger
	bookmarkRepo domain.BookmarkRepository
	resolver     domain.PreviewResolver
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(
	logger *slog.Logger,
	bookmarkRepo domain.BookmarkRepository,
	resolver domain.PreviewResolver,
) *JobProcessor {
	return &JobProcessor{
		logger:       logger,
		bookmarkRepo: bookmarkRepo,
		resolver:     resolver,
	}
}

// parseRefreshPayload reads the bookmark ID and the optional URL override
func parseRefreshPayload(payload map[string]interface{}) (uuid.UUID, string, error) {
	idStr, ok := payload["bookmark_id"].(string)
	if !ok {
		return uuid.Nil, "", fmt.Errorf("missing or invalid bookmark_id in payload")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid bookmark_id format: %w", err)
	}

	rawURL, _ := payload["url"].(string)
	return id, rawURL, nil
}

// ProcessRefreshPreview re-resolves a bookmark's preview, bypassing the
// preview cache, and stores the fresh fields. A bookmark deleted since the
// job was queued is not an error.
func (p *JobProcessor) ProcessRefreshPreview(ctx context.Context, payload map[string]interface{}, logger *slog.Logger) error {
	bookmarkID, rawURL, err := parseRefreshPayload(payload)
	if err != nil {
		return err
	}

	logger = logger.With("bookmark_id", bookmarkID)

	if err := p.bookmarkRepo.UpdatePreviewStatus(ctx, bookmarkID, domain.PreviewStatusProcessing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("Bookmark no longer exists, skipping refresh")
			return nil
		}
		return fmt.Errorf("failed to mark preview as processing: %w", err)
	}

	bookmark, err := p.bookmarkRepo.GetByID(ctx, bookmarkID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Info("Bookmark no longer exists, skipping refresh")
			return nil
		}
		return fmt.Errorf("failed to get bookmark for refresh: %w", err)
	}

	if rawURL == "" {
		rawURL = bookmark.URL
	}

	logger.Info("Refreshing preview", "url", rawURL)

	result := p.resolver.Refresh(ctx, rawURL)
	bookmark.ApplyPreview(result)

	if err := p.bookmarkRepo.Update(ctx, bookmark); err != nil {
		p.markFailed(ctx, bookmarkID, logger)
		return fmt.Errorf("failed to update bookmark: %w", err)
	}

	logger.Info("Preview refreshed",
		"url", rawURL,
		"has_title", result.Title != nil,
		"has_thumbnail", result.ThumbnailURL != nil,
		"has_embed", result.EmbedHTML != nil,
	)

	return nil
}

func (p *JobProcessor) markFailed(ctx context.Context, bookmarkID uuid.UUID, logger *slog.Logger) {
	if err := p.bookmarkRepo.UpdatePreviewStatus(ctx, bookmarkID, domain.PreviewStatusFailed); err != nil {
		logger.Warn("Failed to mark preview as failed", "error", err)
	}
}
