package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookmark-preview/internal/domain"
	"bookmark-preview/internal/pkg/urlnorm"

	"github.com/google/uuid"
)

const (
	DefaultPaginationLimit = 25
	MaxPaginationLimit     = 100
	maxTagLength           = 64
	maxTags                = 32
)

type BookmarksHandler struct {
	logger       *slog.Logger
	bookmarkRepo domain.BookmarkRepository
	resolver     domain.PreviewResolver
	queueRepo    domain.QueueRepository // nil when Redis is not configured
}

// BookmarksResponse represents the paginated response for bookmarks
type BookmarksResponse struct {
	Bookmarks []*domain.Bookmark `json:"bookmarks"`
	HasMore   bool               `json:"has_more"`
	Cursor    *string            `json:"cursor,omitempty"`
}

// CreateBookmarkRequest represents the request body for saving a bookmark
type CreateBookmarkRequest struct {
	URL  string   `json:"url"`
	Tags []string `json:"tags"`
}

// PatchBookmarkRequest represents the request body for partial updates
type PatchBookmarkRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

func NewBookmarksHandler(
	logger *slog.Logger,
	bookmarkRepo domain.BookmarkRepository,
	resolver domain.PreviewResolver,
	queueRepo domain.QueueRepository,
) *BookmarksHandler {
	return &BookmarksHandler{
		logger:       logger,
		bookmarkRepo: bookmarkRepo,
		resolver:     resolver,
		queueRepo:    queueRepo,
	}
}

// parseCursor parses a cursor string into a time.Time pointer
func parseCursor(cursorStr string) (*time.Time, error) {
	if cursorStr == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, cursorStr)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// parseLimit returns the requested page size, or the default when it is
// missing or out of range
func parseLimit(limitStr string) int {
	if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= MaxPaginationLimit {
		return parsed
	}
	return DefaultPaginationLimit
}

// normalizeTags trims tags and drops empty and repeated ones, keeping order
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		normalized = append(normalized, tag)
	}
	return normalized
}

func validateTags(tags []string) string {
	if len(tags) > maxTags {
		return "too many tags (max " + strconv.Itoa(maxTags) + ")"
	}
	for _, tag := range tags {
		if len(tag) > maxTagLength {
			return "tag too long (max " + strconv.Itoa(maxTagLength) + " characters)"
		}
	}
	return ""
}

// buildBookmarksResponse trims the look-ahead row and sets the next cursor
func buildBookmarksResponse(bookmarks []*domain.Bookmark, requestedLimit int) *BookmarksResponse {
	hasMore := len(bookmarks) > requestedLimit
	if hasMore {
		bookmarks = bookmarks[:requestedLimit]
	}

	response := &BookmarksResponse{
		Bookmarks: bookmarks,
		HasMore:   hasMore,
	}

	if hasMore && len(bookmarks) > 0 {
		cursorStr := bookmarks[len(bookmarks)-1].CreatedAt.Format(time.RFC3339Nano)
		response.Cursor = &cursorStr
	}

	return response
}

func (h *BookmarksHandler) bookmarkID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid bookmark ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// lookupError writes 404 for a missing bookmark and 500 otherwise
func (h *BookmarksHandler) lookupError(w http.ResponseWriter, err error, id uuid.UUID) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Bookmark not found", http.StatusNotFound)
		return
	}
	h.logger.Error("Failed to retrieve bookmark", "error", err, "bookmark_id", id)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// ListBookmarks handles GET /api/v1/bookmarks?limit=&cursor=&tags=a,b
func (h *BookmarksHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	cursor, err := parseCursor(query.Get("cursor"))
	if err != nil {
		h.logger.Warn("Invalid cursor format", "cursor", query.Get("cursor"), "error", err)
		http.Error(w, "Invalid cursor format", http.StatusBadRequest)
		return
	}

	limit := parseLimit(query.Get("limit"))

	var tags []string
	if tagsStr := query.Get("tags"); tagsStr != "" {
		tags = normalizeTags(strings.Split(tagsStr, ","))
	}

	// Request one more item than the limit to determine if there are more results
	bookmarks, err := h.bookmarkRepo.GetRecent(ctx, cursor, tags, limit+1)
	if err != nil {
		h.logger.Error("Failed to retrieve bookmarks", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := buildBookmarksResponse(bookmarks, limit)
	h.logger.Info("Retrieved bookmarks", "count", len(response.Bookmarks), "has_more", response.HasMore)
	writeJSON(w, h.logger, http.StatusOK, response)
}

// ListTags handles GET /api/v1/bookmarks/tags
func (h *BookmarksHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.bookmarkRepo.ListTags(r.Context())
	if err != nil {
		h.logger.Error("Failed to retrieve tags", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string][]string{"tags": tags})
}

// CreateBookmark handles POST /api/v1/bookmarks. The preview is resolved
// before the bookmark is stored; an empty preview still saves the bookmark.
func (h *BookmarksHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	canonicalURL, err := urlnorm.Canonical(req.URL)
	if err != nil {
		h.logger.Warn("Invalid bookmark URL", "url", req.URL, "error", err)
		http.Error(w, "Invalid url", http.StatusBadRequest)
		return
	}

	tags := normalizeTags(req.Tags)
	if msg := validateTags(tags); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	existing, err := h.bookmarkRepo.GetByCanonicalURL(ctx, canonicalURL)
	switch {
	case err == nil:
		h.logger.Info("Duplicate bookmark rejected",
			"url", req.URL,
			"existing_id", existing.ID,
		)
		writeJSON(w, h.logger, http.StatusConflict, map[string]string{
			"error":       "bookmark already exists",
			"bookmark_id": existing.ID.String(),
		})
		return
	case !errors.Is(err, sql.ErrNoRows):
		h.logger.Error("Failed to check for duplicate bookmark", "error", err, "url", req.URL)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	bookmark := &domain.Bookmark{
		ID:           uuid.New(),
		URL:          req.URL,
		CanonicalURL: canonicalURL,
		Tags:         tags,
		CreatedAt:    time.Now().UTC(),
	}
	bookmark.ApplyPreview(h.resolver.Resolve(ctx, req.URL))

	if err := h.bookmarkRepo.Create(ctx, bookmark); err != nil {
		h.logger.Error("Failed to create bookmark", "error", err, "url", req.URL)
		http.Error(w, "Failed to create bookmark", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, bookmark)
}

// GetBookmark handles GET /api/v1/bookmarks/{id}
func (h *BookmarksHandler) GetBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookmarkID(w, r)
	if !ok {
		return
	}

	bookmark, err := h.bookmarkRepo.GetByID(r.Context(), id)
	if err != nil {
		h.lookupError(w, err, id)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, bookmark)
}

// PatchBookmark handles PATCH /api/v1/bookmarks/{id}
func (h *BookmarksHandler) PatchBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.bookmarkID(w, r)
	if !ok {
		return
	}

	var req PatchBookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	bookmark, err := h.bookmarkRepo.GetByID(ctx, id)
	if err != nil {
		h.lookupError(w, err, id)
		return
	}

	if req.Title != nil {
		bookmark.Title = req.Title
	}
	if req.Description != nil {
		bookmark.Description = req.Description
	}
	if req.Tags != nil {
		tags := normalizeTags(*req.Tags)
		if msg := validateTags(tags); msg != "" {
			http.Error(w, msg, http.StatusBadRequest)
			return
		}
		bookmark.Tags = tags
	}

	if err := h.bookmarkRepo.Update(ctx, bookmark); err != nil {
		h.lookupError(w, err, id)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, bookmark)
}

// DeleteBookmark handles DELETE /api/v1/bookmarks/{id}
func (h *BookmarksHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	id, ok := h.bookmarkID(w, r)
	if !ok {
		return
	}

	if err := h.bookmarkRepo.Delete(r.Context(), id); err != nil {
		h.lookupError(w, err, id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RefreshBookmark handles POST /api/v1/bookmarks/{id}/refresh by queueing a
// background re-resolution of the preview
func (h *BookmarksHandler) RefreshBookmark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.bookmarkID(w, r)
	if !ok {
		return
	}

	if h.queueRepo == nil {
		http.Error(w, "Preview refresh is unavailable", http.StatusServiceUnavailable)
		return
	}

	bookmark, err := h.bookmarkRepo.GetByID(ctx, id)
	if err != nil {
		h.lookupError(w, err, id)
		return
	}

	jobID, err := h.queueRepo.Enqueue(ctx, domain.JobTypeRefreshPreview, domain.RefreshPreviewPayload{
		BookmarkID: bookmark.ID.String(),
		URL:        bookmark.URL,
	})
	if err != nil {
		h.logger.Error("Failed to enqueue preview refresh", "error", err, "bookmark_id", id)
		http.Error(w, "Failed to queue refresh", http.StatusInternalServerError)
		return
	}

	if err := h.bookmarkRepo.UpdatePreviewStatus(ctx, id, domain.PreviewStatusPending); err != nil {
		h.logger.Warn("Failed to mark preview as pending", "error", err, "bookmark_id", id)
	}

	writeJSON(w, h.logger, http.StatusAccepted, map[string]string{
		"job_id":      jobID,
		"bookmark_id": id.String(),
		"status":      domain.PreviewStatusPending,
	})
}
