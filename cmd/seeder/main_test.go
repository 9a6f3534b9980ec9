package main

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"bookmark-preview/internal/domain"
	"bookmark-preview/internal/pkg/urldetector"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBookmarks struct {
	byCanonical map[string]*domain.Bookmark
	created     []*domain.Bookmark
}

func (m *memoryBookmarks) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bookmark, error) {
	return nil, sql.ErrNoRows
}

func (m *memoryBookmarks) GetByCanonicalURL(ctx context.Context, canonicalURL string) (*domain.Bookmark, error) {
	if b, ok := m.byCanonical[canonicalURL]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memoryBookmarks) GetRecent(ctx context.Context, cursor *time.Time, tags []string, limit int) ([]*domain.Bookmark, error) {
	return nil, nil
}

func (m *memoryBookmarks) ListTags(ctx context.Context) ([]string, error) { return nil, nil }

func (m *memoryBookmarks) Create(ctx context.Context, b *domain.Bookmark) error {
	m.byCanonical[b.CanonicalURL] = b
	m.created = append(m.created, b)
	return nil
}

func (m *memoryBookmarks) Update(ctx context.Context, b *domain.Bookmark) error { return nil }
func (m *memoryBookmarks) Delete(ctx context.Context, id uuid.UUID) error       { return nil }
func (m *memoryBookmarks) UpdatePreviewStatus(ctx context.Context, id uuid.UUID, status string) error {
	return nil
}

type titleResolver struct{ calls int }

func (r *titleResolver) Resolve(ctx context.Context, url string) domain.PreviewResult {
	r.calls++
	title := "Title of " + url
	return domain.PreviewResult{Title: &title}
}

func (r *titleResolver) Refresh(ctx context.Context, url string) domain.PreviewResult {
	return r.Resolve(ctx, url)
}

type recordingQueue struct {
	domain.QueueRepository
	payloads []interface{}
}

func (q *recordingQueue) Enqueue(ctx context.Context, jobType string, payload interface{}) (string, error) {
	q.payloads = append(q.payloads, payload)
	return "job-1", nil
}

func newTestSeeder() (*Seeder, *memoryBookmarks, *titleResolver) {
	repo := &memoryBookmarks{byCanonical: map[string]*domain.Bookmark{}}
	resolver := &titleResolver{}
	return &Seeder{
		bookmarkRepo: repo,
		resolver:     resolver,
		urlDetector:  urldetector.New(func(string) string { return "" }),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		tags:         []string{"imported"},
		skipRoot:     true,
	}, repo, resolver
}

const importDoc = `
Reading list:
- [Go blog](https://go.dev/blog/slog)
- https://www.go.dev/blog/slog?utm_source=newsletter
- https://example.com
- https://example.com/articles/42
`

func TestSeederImportsLinks(t *testing.T) {
	seeder, repo, resolver := newTestSeeder()

	stats := seeder.Run(context.Background(), importDoc)

	assert.Equal(t, 4, stats.URLsDetected)
	assert.Equal(t, 2, stats.BookmarksCreated)
	// root URL plus the canonical duplicate of the first link
	assert.Equal(t, 2, stats.BookmarksSkipped)
	assert.Zero(t, stats.Errors)
	assert.Equal(t, 2, resolver.calls)

	require.Len(t, repo.created, 2)
	first := repo.created[0]
	assert.Equal(t, "https://go.dev/blog/slog", first.URL)
	assert.Equal(t, []string{"imported"}, first.Tags)
	assert.Equal(t, domain.PreviewStatusComplete, first.PreviewStatus)
	require.NotNil(t, first.Title)
	assert.Equal(t, "Title of https://go.dev/blog/slog", *first.Title)
}

func TestSeederDryRun(t *testing.T) {
	seeder, repo, resolver := newTestSeeder()
	seeder.dryRun = true

	stats := seeder.Run(context.Background(), importDoc)

	assert.Empty(t, repo.created)
	assert.Zero(t, resolver.calls)
	assert.Equal(t, 3, stats.BookmarksCreated)
}

func TestSeederDeferredQueuesJobs(t *testing.T) {
	seeder, repo, resolver := newTestSeeder()
	queue := &recordingQueue{}
	seeder.queueRepo = queue
	seeder.limit = 1

	stats := seeder.Run(context.Background(), importDoc)

	assert.Equal(t, 1, stats.URLsDetected)
	assert.Equal(t, 1, stats.JobsQueued)
	assert.Zero(t, resolver.calls)
	require.Len(t, repo.created, 1)
	assert.Equal(t, domain.PreviewStatusPending, repo.created[0].PreviewStatus)
	assert.Equal(t, domain.RefreshPreviewPayload{
		BookmarkID: repo.created[0].ID.String(),
		URL:        "https://go.dev/blog/slog",
	}, queue.payloads[0])
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, splitTags(""))
	assert.Equal(t, []string{"a", "b"}, splitTags(" a, ,b "))
}
