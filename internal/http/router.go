package http

import (
	"log/slog"
	"net/http"

	"bookmark-preview/internal/domain"
	"bookmark-preview/internal/http/handlers"
	"bookmark-preview/internal/http/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the collaborators the API routes need.
// QueueRepo and QueueStats may be nil when Redis is not configured.
type Dependencies struct {
	BookmarkRepo domain.BookmarkRepository
	QueueRepo    domain.QueueRepository
	QueueStats   handlers.QueueStatsReader
	Resolver     domain.PreviewResolver
	PreviewCache domain.PreviewCache
	Platforms    handlers.PlatformLister
	AdminAPIKey  string
}

type Router struct {
	mux              *http.ServeMux
	adminAuth        *middleware.AdminAuth
	healthHandler    *handlers.HealthHandler
	embedHandler     *handlers.EmbedHandler
	bookmarksHandler *handlers.BookmarksHandler
	adminHandler     *handlers.AdminHandler
}

func NewRouter(logger *slog.Logger, deps Dependencies) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		adminAuth:        middleware.NewAdminAuth(deps.AdminAPIKey, logger),
		healthHandler:    handlers.NewHealthHandler(logger),
		embedHandler:     handlers.NewEmbedHandler(logger, deps.Resolver),
		bookmarksHandler: handlers.NewBookmarksHandler(logger, deps.BookmarkRepo, deps.Resolver, deps.QueueRepo),
		adminHandler:     handlers.NewAdminHandler(deps.PreviewCache, deps.Platforms, deps.QueueStats, logger),
	}
}

// handle registers a public route with request metrics
func (r *Router) handle(pattern, action string, h http.HandlerFunc) {
	r.mux.Handle(pattern, middleware.Metrics(action, h))
}

// handleAdmin registers a route behind the admin API key
func (r *Router) handleAdmin(pattern, action string, h http.HandlerFunc) {
	r.mux.Handle(pattern, middleware.Chain(h,
		func(next http.Handler) http.Handler { return middleware.Metrics(action, next) },
		r.adminAuth.Middleware,
	))
}

func (r *Router) SetupRoutes() http.Handler {
	// Health check and metrics
	r.mux.HandleFunc("GET /health", r.healthHandler.HandleHealth)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	// API v1 routes - Link previews
	r.handle("GET /api/v1/bookmarks/embed", "embed", r.embedHandler.GetEmbed)

	// API v1 routes - Bookmarks
	r.handle("GET /api/v1/bookmarks", "list_bookmarks", r.bookmarksHandler.ListBookmarks)
	r.handle("POST /api/v1/bookmarks", "create_bookmark", r.bookmarksHandler.CreateBookmark)
	r.handle("GET /api/v1/bookmarks/tags", "list_tags", r.bookmarksHandler.ListTags)
	r.handle("GET /api/v1/bookmarks/{id}", "get_bookmark", r.bookmarksHandler.GetBookmark)
	r.handle("PATCH /api/v1/bookmarks/{id}", "patch_bookmark", r.bookmarksHandler.PatchBookmark)
	r.handle("DELETE /api/v1/bookmarks/{id}", "delete_bookmark", r.bookmarksHandler.DeleteBookmark)
	r.handle("POST /api/v1/bookmarks/{id}/refresh", "refresh_bookmark", r.bookmarksHandler.RefreshBookmark)

	// API v1 routes - Admin
	r.handleAdmin("DELETE /api/v1/admin/cache", "admin_invalidate_cache", r.adminHandler.InvalidateCache)
	r.handleAdmin("GET /api/v1/admin/platforms", "admin_list_platforms", r.adminHandler.ListPlatforms)
	r.handleAdmin("GET /api/v1/admin/queue", "admin_queue_stats", r.adminHandler.QueueStats)

	// Add CORS middleware
	return middleware.CORS(r.mux)
}
