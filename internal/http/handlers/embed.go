package handlers

import (
	"log/slog"
	"net/http"

	"bookmark-preview/internal/domain"
)

// EmbedCacheControl lets shared caches keep a preview for a day and serve it
// stale for another twelve hours while revalidating
const EmbedCacheControl = "public, s-maxage=86400, stale-while-revalidate=43200"

// EmbedHandler serves link previews for arbitrary URLs
type EmbedHandler struct {
	logger   *slog.Logger
	resolver domain.PreviewResolver
}

func NewEmbedHandler(logger *slog.Logger, resolver domain.PreviewResolver) *EmbedHandler {
	return &EmbedHandler{
		logger:   logger,
		resolver: resolver,
	}
}

// GetEmbed handles GET /api/v1/bookmarks/embed?url=
//
// Resolution failures are not errors: the response is always 200 with
// whatever fields could be found, null otherwise.
func (h *EmbedHandler) GetEmbed(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeJSON(w, h.logger, http.StatusBadRequest, map[string]string{
			"error": "url parameter is required",
		})
		return
	}

	result := h.resolver.Resolve(r.Context(), rawURL)

	h.logger.Debug("Preview served",
		"url", rawURL,
		"has_title", result.Title != nil,
		"has_embed", result.EmbedHTML != nil,
	)

	w.Header().Set("Cache-Control", EmbedCacheControl)
	writeJSON(w, h.logger, http.StatusOK, result)
}
