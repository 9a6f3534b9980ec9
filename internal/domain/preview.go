package domain

import (
	"context"
	"time"
)

// PreviewResult is the best-effort preview of a URL.
// Every field is optional; nil means "unknown", never an error.
type PreviewResult struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ThumbnailURL *string `json:"thumbnail_url"`
	EmbedHTML    *string `json:"html"`
}

// IsEmpty reports whether no field of the preview is known
func (p PreviewResult) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.ThumbnailURL == nil && p.EmbedHTML == nil
}

// Clone returns a deep copy so callers never share pointers with a cache
func (p PreviewResult) Clone() PreviewResult {
	return PreviewResult{
		Title:        cloneString(p.Title),
		Description:  cloneString(p.Description),
		ThumbnailURL: cloneString(p.ThumbnailURL),
		EmbedHTML:    cloneString(p.EmbedHTML),
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// PreviewCache is the keyed store with expiry that the preview pipeline consults.
// Implementations must be safe for concurrent use.
type PreviewCache interface {
	// Get returns the cached preview for key, or false on a miss
	Get(ctx context.Context, key string) (PreviewResult, bool)

	// Set stores the preview for key; it expires after ttl
	Set(ctx context.Context, key string, value PreviewResult, ttl time.Duration) error

	// InvalidatePrefix removes every key starting with prefix and returns how many were removed
	InvalidatePrefix(ctx context.Context, prefix string) (int, error)
}

// PreviewResolver produces previews. The pipeline implementation never fails.
type PreviewResolver interface {
	// Resolve may answer from the cache
	Resolve(ctx context.Context, url string) PreviewResult

	// Refresh always fetches and overwrites the cached entry
	Refresh(ctx context.Context, url string) PreviewResult
}
