package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookmarkRepository defines the interface for bookmark data operations
type BookmarkRepository interface {
	// GetByID retrieves a bookmark by its UUID
	GetByID(ctx context.Context, id uuid.UUID) (*Bookmark, error)

	// GetByCanonicalURL finds a bookmark by its canonical URL (for duplicate detection)
	GetByCanonicalURL(ctx context.Context, canonicalURL string) (*Bookmark, error)

	// GetRecent returns bookmarks created before cursor (or the newest when cursor is nil).
	// A non-empty tags filter keeps bookmarks carrying at least one of the tags.
	GetRecent(ctx context.Context, cursor *time.Time, tags []string, limit int) ([]*Bookmark, error)

	// ListTags returns every distinct tag in use, sorted
	ListTags(ctx context.Context) ([]string, error)

	// Create inserts a new bookmark
	Create(ctx context.Context, bookmark *Bookmark) error

	// Update modifies an existing bookmark
	Update(ctx context.Context, bookmark *Bookmark) error

	// Delete removes a bookmark by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdatePreviewStatus updates the preview resolution status
	UpdatePreviewStatus(ctx context.Context, id uuid.UUID, status string) error
}

// QueueRepository defines the interface for job queue operations
type QueueRepository interface {
	// Enqueue adds a new job to the queue and returns its ID
	Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error)

	// Dequeue retrieves the next job from the queue, or nil when none is ready
	Dequeue(ctx context.Context, jobType string) (*QueueJob, error)

	// Complete marks a job as completed
	Complete(ctx context.Context, jobID string) error

	// Fail marks a job as failed with error details
	Fail(ctx context.Context, jobID string, errorMsg string) error

	// GetPendingCount returns the number of pending jobs
	GetPendingCount(ctx context.Context, jobType string) (int, error)

	// ProcessRetryJobs requeues jobs stuck in processing and moves jobs whose
	// backoff has elapsed back onto the queue
	ProcessRetryJobs(ctx context.Context, jobType string) error
}

// QueueJob represents a job in the processing queue
type QueueJob struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Status    string                 `json:"status"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt *string                `json:"updated_at"`
}

// RefreshPreviewPayload is the payload of a JobTypeRefreshPreview job
type RefreshPreviewPayload struct {
	BookmarkID string `json:"bookmark_id"`
	URL        string `json:"url"`
}

// Job types
const (
	JobTypeRefreshPreview = "refresh_preview"
)

// Job statuses
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)
