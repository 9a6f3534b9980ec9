package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookmark-preview/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// BookmarkRepository implements the domain.BookmarkRepository interface using PostgreSQL
type BookmarkRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBookmarkRepository creates a new PostgreSQL bookmark repository
func NewBookmarkRepository(db *sql.DB, logger *slog.Logger) *BookmarkRepository {
	return &BookmarkRepository{
		db:     db,
		logger: logger,
	}
}

const bookmarkColumns = `
		id, url, canonical_url, title, description, thumbnail_url, embed_html,
		tags, preview_status, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBookmark(row rowScanner) (*domain.Bookmark, error) {
	bookmark := &domain.Bookmark{}
	var title, description, thumbnailURL, embedHTML sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&bookmark.ID,
		&bookmark.URL,
		&bookmark.CanonicalURL,
		&title,
		&description,
		&thumbnailURL,
		&embedHTML,
		pq.Array(&bookmark.Tags),
		&bookmark.PreviewStatus,
		&bookmark.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Handle nullable fields
	bookmark.Title = nullStringPtr(title)
	bookmark.Description = nullStringPtr(description)
	bookmark.ThumbnailURL = nullStringPtr(thumbnailURL)
	bookmark.EmbedHTML = nullStringPtr(embedHTML)
	if updatedAt.Valid {
		bookmark.UpdatedAt = &updatedAt.Time
	}
	if bookmark.Tags == nil {
		bookmark.Tags = []string{}
	}

	return bookmark, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func stringOrNull(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

// GetByID retrieves a bookmark by its UUID
func (r *BookmarkRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + `
		FROM bookmarks
		WHERE id = $1`

	bookmark, err := scanBookmark(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("Bookmark not found", "bookmark_id", id)
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to query bookmark",
			"error", err,
			"bookmark_id", id,
		)
		return nil, fmt.Errorf("failed to query bookmark: %w", err)
	}

	r.logger.Debug("Bookmark found", "bookmark_id", id, "url", bookmark.URL)
	return bookmark, nil
}

// GetByCanonicalURL finds the newest bookmark with the given canonical URL
func (r *BookmarkRepository) GetByCanonicalURL(ctx context.Context, canonicalURL string) (*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + `
		FROM bookmarks
		WHERE canonical_url = $1
		ORDER BY created_at DESC
		LIMIT 1`

	bookmark, err := scanBookmark(r.db.QueryRowContext(ctx, query, canonicalURL))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug("No duplicate bookmark found", "canonical_url", canonicalURL)
			return nil, sql.ErrNoRows
		}
		r.logger.Error("Failed to query bookmark by URL",
			"error", err,
			"canonical_url", canonicalURL,
		)
		return nil, fmt.Errorf("failed to query bookmark by URL: %w", err)
	}

	r.logger.Debug("Found existing bookmark",
		"bookmark_id", bookmark.ID,
		"canonical_url", canonicalURL,
	)
	return bookmark, nil
}

// GetRecent returns up to limit bookmarks, newest first, created strictly
// before cursor when one is given. Tags match by overlap.
func (r *BookmarkRepository) GetRecent(ctx context.Context, cursor *time.Time, tags []string, limit int) ([]*domain.Bookmark, error) {
	query := `SELECT ` + bookmarkColumns + `
		FROM bookmarks
		WHERE ($1::timestamptz IS NULL OR created_at < $1)
		  AND (cardinality($2::text[]) = 0 OR tags && $2::text[])
		ORDER BY created_at DESC
		LIMIT $3`

	var before interface{}
	if cursor != nil {
		before = *cursor
	}
	if tags == nil {
		tags = []string{}
	}

	rows, err := r.db.QueryContext(ctx, query, before, pq.Array(tags), limit)
	if err != nil {
		r.logger.Error("Failed to query recent bookmarks", "error", err, "limit", limit)
		return nil, fmt.Errorf("failed to query recent bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := make([]*domain.Bookmark, 0, limit)
	for rows.Next() {
		bookmark, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, bookmark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}

	return bookmarks, nil
}

// ListTags returns the distinct tags across all bookmarks in ascending order
func (r *BookmarkRepository) ListTags(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT tag
		FROM bookmarks, unnest(tags) AS tag
		ORDER BY 1`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query tags", "error", err)
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return tags, nil
}

// Create inserts a new bookmark
func (r *BookmarkRepository) Create(ctx context.Context, bookmark *domain.Bookmark) error {
	query := `
		INSERT INTO bookmarks (
			id, url, canonical_url, title, description, thumbnail_url, embed_html,
			tags, preview_status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`

	tags := bookmark.Tags
	if tags == nil {
		tags = []string{}
	}

	// Set updated_at to same as created_at for new records
	updatedAt := bookmark.CreatedAt
	if bookmark.UpdatedAt != nil {
		updatedAt = *bookmark.UpdatedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		bookmark.ID,
		bookmark.URL,
		bookmark.CanonicalURL,
		stringOrNull(bookmark.Title),
		stringOrNull(bookmark.Description),
		stringOrNull(bookmark.ThumbnailURL),
		stringOrNull(bookmark.EmbedHTML),
		pq.Array(tags),
		bookmark.PreviewStatus,
		bookmark.CreatedAt,
		updatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create bookmark",
			"error", err,
			"bookmark_id", bookmark.ID,
			"url", bookmark.URL,
		)
		return fmt.Errorf("failed to create bookmark: %w", err)
	}

	r.logger.Info("Bookmark created successfully",
		"bookmark_id", bookmark.ID,
		"url", bookmark.URL,
		"preview_status", bookmark.PreviewStatus,
	)

	return nil
}

// Update modifies an existing bookmark
func (r *BookmarkRepository) Update(ctx context.Context, bookmark *domain.Bookmark) error {
	query := `
		UPDATE bookmarks SET
			url = $2,
			canonical_url = $3,
			title = $4,
			description = $5,
			thumbnail_url = $6,
			embed_html = $7,
			tags = $8,
			preview_status = $9,
			updated_at = $10
		WHERE id = $1`

	tags := bookmark.Tags
	if tags == nil {
		tags = []string{}
	}

	// Set updated_at to current time
	now := time.Now()
	bookmark.UpdatedAt = &now

	result, err := r.db.ExecContext(ctx, query,
		bookmark.ID,
		bookmark.URL,
		bookmark.CanonicalURL,
		stringOrNull(bookmark.Title),
		stringOrNull(bookmark.Description),
		stringOrNull(bookmark.ThumbnailURL),
		stringOrNull(bookmark.EmbedHTML),
		pq.Array(tags),
		bookmark.PreviewStatus,
		bookmark.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update bookmark",
			"error", err,
			"bookmark_id", bookmark.ID,
		)
		return fmt.Errorf("failed to update bookmark: %w", err)
	}

	if err := expectOneRow(result, bookmark.ID); err != nil {
		return err
	}

	r.logger.Info("Bookmark updated successfully",
		"bookmark_id", bookmark.ID,
		"preview_status", bookmark.PreviewStatus,
	)

	return nil
}

// Delete removes a bookmark by ID. A missing bookmark is sql.ErrNoRows.
func (r *BookmarkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete bookmark", "error", err, "bookmark_id", id)
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}

	if err := expectOneRow(result, id); err != nil {
		return err
	}

	r.logger.Info("Bookmark deleted", "bookmark_id", id)
	return nil
}

// UpdatePreviewStatus updates the preview resolution status
func (r *BookmarkRepository) UpdatePreviewStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE bookmarks
		SET preview_status = $1, updated_at = NOW()
		WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update preview status",
			"error", err,
			"bookmark_id", id,
			"status", status,
		)
		return fmt.Errorf("failed to update preview status: %w", err)
	}

	if err := expectOneRow(result, id); err != nil {
		return err
	}

	r.logger.Debug("Preview status updated",
		"bookmark_id", id,
		"status", status,
	)

	return nil
}

func expectOneRow(result sql.Result, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("bookmark %s: %w", id, sql.ErrNoRows)
	}
	return nil
}
