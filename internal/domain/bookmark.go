package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark represents a saved link together with its resolved preview
type Bookmark struct {
	ID  uuid.UUID `json:"id" db:"id"`
	URL string    `json:"url" db:"url"`

	// CanonicalURL is used for duplicate detection only
	CanonicalURL string `json:"canonical_url" db:"canonical_url"`

	// Preview fields, copied from the PreviewResult at creation time
	Title        *string `json:"title" db:"title"`
	Description  *string `json:"description" db:"description"`
	ThumbnailURL *string `json:"thumbnail_url" db:"thumbnail_url"`
	EmbedHTML    *string `json:"embed_html" db:"embed_html"`

	Tags          []string `json:"tags" db:"tags"`
	PreviewStatus string   `json:"preview_status" db:"preview_status"`

	// Timestamps
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at" db:"updated_at"`
}

// Preview status constants
const (
	PreviewStatusPending    = "pending"
	PreviewStatusProcessing = "processing"
	PreviewStatusComplete   = "complete"
	PreviewStatusFailed     = "failed"
)

// ApplyPreview copies the preview fields onto the bookmark and marks the
// preview complete. An empty preview is still a complete one.
func (b *Bookmark) ApplyPreview(p PreviewResult) {
	b.Title = p.Title
	b.Description = p.Description
	b.ThumbnailURL = p.ThumbnailURL
	b.EmbedHTML = p.EmbedHTML
	b.PreviewStatus = PreviewStatusComplete
}

// Preview returns the bookmark's stored preview fields
func (b *Bookmark) Preview() PreviewResult {
	return PreviewResult{
		Title:        b.Title,
		Description:  b.Description,
		ThumbnailURL: b.ThumbnailURL,
		EmbedHTML:    b.EmbedHTML,
	}
}
