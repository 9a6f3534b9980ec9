package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"bookmark-preview/internal/config"
	"bookmark-preview/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func strp(s string) *string { return &s }

type fakeBookmarks struct {
	mu        sync.Mutex
	items     map[uuid.UUID]*domain.Bookmark
	statuses  []string
	failWrite bool
}

func newFakeBookmarks(bookmarks ...*domain.Bookmark) *fakeBookmarks {
	f := &fakeBookmarks{items: make(map[uuid.UUID]*domain.Bookmark)}
	for _, b := range bookmarks {
		f.items[b.ID] = b
	}
	return f
}

func (f *fakeBookmarks) GetByID(_ context.Context, id uuid.UUID) (*domain.Bookmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookmarks) GetByCanonicalURL(context.Context, string) (*domain.Bookmark, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeBookmarks) GetRecent(context.Context, *time.Time, []string, int) ([]*domain.Bookmark, error) {
	return nil, nil
}

func (f *fakeBookmarks) ListTags(context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeBookmarks) Create(_ context.Context, b *domain.Bookmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[b.ID] = b
	return nil
}

func (f *fakeBookmarks) Update(_ context.Context, b *domain.Bookmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errors.New("database unavailable")
	}
	if _, ok := f.items[b.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *b
	f.items[b.ID] = &copied
	return nil
}

func (f *fakeBookmarks) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	return nil
}

func (f *fakeBookmarks) UpdatePreviewStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.items[id]
	if !ok {
		return fmt.Errorf("bookmark %s: %w", id, sql.ErrNoRows)
	}
	b.PreviewStatus = status
	f.statuses = append(f.statuses, status)
	return nil
}

type fakeResolver struct {
	mu        sync.Mutex
	result    domain.PreviewResult
	refreshed []string
}

func (r *fakeResolver) Resolve(_ context.Context, url string) domain.PreviewResult {
	return r.result.Clone()
}

func (r *fakeResolver) Refresh(_ context.Context, url string) domain.PreviewResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, url)
	return r.result.Clone()
}

type fakeQueue struct {
	mu        sync.Mutex
	pending   []*domain.QueueJob
	completed []string
	failed    map[string]string
	retried   int
}

func newFakeQueue(jobs ...*domain.QueueJob) *fakeQueue {
	return &fakeQueue{pending: jobs, failed: make(map[string]string)}
}

func (q *fakeQueue) Enqueue(_ context.Context, jobType string, payload interface{}) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := uuid.NewString()
	q.pending = append(q.pending, &domain.QueueJob{ID: id, Type: jobType})
	return id, nil
}

func (q *fakeQueue) Dequeue(_ context.Context, jobType string) (*domain.QueueJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job, nil
}

func (q *fakeQueue) Complete(_ context.Context, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.completed = append(q.completed, jobID)
	return nil
}

func (q *fakeQueue) Fail(_ context.Context, jobID string, errorMsg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed[jobID] = errorMsg
	return nil
}

func (q *fakeQueue) GetPendingCount(context.Context, string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), nil
}

func (q *fakeQueue) ProcessRetryJobs(context.Context, string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.retried++
	return nil
}

func refreshJob(bookmarkID, url string) *domain.QueueJob {
	return &domain.QueueJob{
		ID:   uuid.NewString(),
		Type: domain.JobTypeRefreshPreview,
		Payload: map[string]interface{}{
			"bookmark_id": bookmarkID,
			"url":         url,
		},
		Status: domain.JobStatusProcessing,
	}
}

func TestProcessRefreshPreview(t *testing.T) {
	bookmark := &domain.Bookmark{
		ID:            uuid.New(),
		URL:           "https://example.com/post",
		Title:         strp("Old title"),
		PreviewStatus: domain.PreviewStatusComplete,
	}
	repo := newFakeBookmarks(bookmark)
	resolver := &fakeResolver{result: domain.PreviewResult{Title: strp("New title")}}
	p := NewJobProcessor(createTestLogger(), repo, resolver)

	err := p.ProcessRefreshPreview(context.Background(), map[string]interface{}{
		"bookmark_id": bookmark.ID.String(),
	}, createTestLogger())
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), bookmark.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", *got.Title)
	assert.Nil(t, got.Description)
	assert.Equal(t, domain.PreviewStatusComplete, got.PreviewStatus)
	assert.Equal(t, []string{domain.PreviewStatusProcessing}, repo.statuses)
	assert.Equal(t, []string{"https://example.com/post"}, resolver.refreshed, "falls back to the stored URL")
}

func TestProcessRefreshPreviewPayloadURL(t *testing.T) {
	bookmark := &domain.Bookmark{ID: uuid.New(), URL: "https://example.com/old"}
	resolver := &fakeResolver{}
	p := NewJobProcessor(createTestLogger(), newFakeBookmarks(bookmark), resolver)

	err := p.ProcessRefreshPreview(context.Background(), map[string]interface{}{
		"bookmark_id": bookmark.ID.String(),
		"url":         "https://example.com/new",
	}, createTestLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/new"}, resolver.refreshed)
}

func TestProcessRefreshPreviewErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		wantErr bool
	}{
		{"missing id", map[string]interface{}{"url": "https://example.com"}, true},
		{"id not a string", map[string]interface{}{"bookmark_id": 42}, true},
		{"malformed id", map[string]interface{}{"bookmark_id": "not-a-uuid"}, true},
		{"deleted bookmark", map[string]interface{}{"bookmark_id": uuid.NewString()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{}
			p := NewJobProcessor(createTestLogger(), newFakeBookmarks(), resolver)

			err := p.ProcessRefreshPreview(context.Background(), tt.payload, createTestLogger())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Empty(t, resolver.refreshed)
		})
	}
}

func TestProcessRefreshPreviewUpdateFailure(t *testing.T) {
	bookmark := &domain.Bookmark{ID: uuid.New(), URL: "https://example.com"}
	repo := newFakeBookmarks(bookmark)
	repo.failWrite = true
	p := NewJobProcessor(createTestLogger(), repo, &fakeResolver{})

	err := p.ProcessRefreshPreview(context.Background(), map[string]interface{}{
		"bookmark_id": bookmark.ID.String(),
	}, createTestLogger())

	assert.Error(t, err)
	assert.Equal(t, []string{domain.PreviewStatusProcessing, domain.PreviewStatusFailed}, repo.statuses)
}

func newTestService(queue *fakeQueue, repo *fakeBookmarks, batchSize int) *WorkerService {
	cfg := &config.Config{
		WorkerPollInterval: time.Second,
		WorkerBatchSize:    batchSize,
	}
	return New(cfg, createTestLogger(), repo, queue, &fakeResolver{
		result: domain.PreviewResult{Title: strp("Fresh")},
	})
}

func TestProcessJobTypeHonoursBatchSize(t *testing.T) {
	b1 := &domain.Bookmark{ID: uuid.New(), URL: "https://example.com/1"}
	b2 := &domain.Bookmark{ID: uuid.New(), URL: "https://example.com/2"}
	b3 := &domain.Bookmark{ID: uuid.New(), URL: "https://example.com/3"}
	jobs := []*domain.QueueJob{
		refreshJob(b1.ID.String(), b1.URL),
		refreshJob(b2.ID.String(), b2.URL),
		refreshJob(b3.ID.String(), b3.URL),
	}
	queue := newFakeQueue(jobs...)
	w := newTestService(queue, newFakeBookmarks(b1, b2, b3), 2)
	defer w.Stop()

	w.processJobType(domain.JobTypeRefreshPreview)

	assert.Equal(t, []string{jobs[0].ID, jobs[1].ID}, queue.completed)
	assert.Len(t, queue.pending, 1)

	stats := w.GetStats()
	assert.Equal(t, int64(2), stats.JobsProcessed)
	assert.Equal(t, int64(2), stats.JobsSucceeded)
	assert.False(t, stats.LastJobTime.IsZero())
}

func TestProcessJobReportsFailure(t *testing.T) {
	bad := refreshJob("not-a-uuid", "")
	unknown := &domain.QueueJob{ID: uuid.NewString(), Type: "mystery"}
	queue := newFakeQueue(bad, unknown)
	w := newTestService(queue, newFakeBookmarks(), 10)
	defer w.Stop()

	w.processPendingJobs()

	assert.Empty(t, queue.completed, "failed jobs must not be completed")
	assert.Contains(t, queue.failed[bad.ID], "bookmark_id")
	assert.Contains(t, queue.failed[unknown.ID], "unknown job type")
	assert.Equal(t, 1, queue.retried)
	assert.Equal(t, int64(2), w.GetStats().JobsFailed)
}

func TestHealthCheck(t *testing.T) {
	w := newTestService(newFakeQueue(), newFakeBookmarks(), 10)
	assert.NoError(t, w.HealthCheck())

	require.NoError(t, w.Stop())
	assert.Error(t, w.HealthCheck())
}
