package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bookmark-preview/internal/cache"
	"bookmark-preview/internal/config"
	"bookmark-preview/internal/domain"
	"bookmark-preview/internal/pkg/logger"
	"bookmark-preview/internal/pkg/urldetector"
	"bookmark-preview/internal/pkg/urlnorm"
	"bookmark-preview/internal/repository/postgres"
	"bookmark-preview/internal/repository/redis"
	"bookmark-preview/internal/service/preview"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

func main() {
	var (
		file     = flag.String("file", "-", "Text or markdown file to import links from (- for stdin)")
		tags     = flag.String("tags", "", "Comma separated tags for every imported bookmark")
		limit    = flag.Int("limit", 0, "Maximum number of links to import (0 = no limit)")
		deferred = flag.Bool("deferred", false, "Save bookmarks immediately and queue preview jobs (needs REDIS_URL)")
		skipRoot = flag.Bool("skip-root", true, "Skip links to bare domains")
		dryRun   = flag.Bool("dry-run", false, "Print what would be done without creating bookmarks")
	)
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *deferred && cfg.RedisURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -deferred requires REDIS_URL")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	log.Info("Starting bookmark import...",
		"file", *file,
		"limit", *limit,
		"deferred", *deferred,
		"dry_run", *dryRun,
	)

	content, err := readInput(*file)
	if err != nil {
		log.Error("Failed to read input", "error", err)
		os.Exit(1)
	}

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	resolver := preview.New(cfg.PreviewOptions(), nil, log)

	seeder := &Seeder{
		bookmarkRepo: postgres.NewBookmarkRepository(db, log),
		resolver:     resolver,
		urlDetector:  urldetector.New(resolver.Registry().Classify),
		logger:       log,
		tags:         splitTags(*tags),
		limit:        *limit,
		skipRoot:     *skipRoot,
		dryRun:       *dryRun,
	}

	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		// Share previews with the API when Redis is available
		previewCache := cache.New(redisClient, cfg.PreviewCacheTTL, cfg.PreviewCacheSweep, log)
		seeder.resolver = preview.New(cfg.PreviewOptions(), previewCache, log)
		if *deferred {
			seeder.queueRepo = redis.NewQueueRepository(redisClient, log)
		}
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutdown signal received, stopping import...")
		cancel()
	}()

	stats := seeder.Run(ctx, content)

	log.Info("Import completed",
		"urls_detected", stats.URLsDetected,
		"bookmarks_created", stats.BookmarksCreated,
		"bookmarks_skipped", stats.BookmarksSkipped,
		"jobs_queued", stats.JobsQueued,
		"errors", stats.Errors,
	)

	if stats.Errors > 0 {
		os.Exit(1)
	}
}

func readInput(path string) (string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(bufio.NewReader(r))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

func splitTags(s string) []string {
	var tags []string
	for _, tag := range strings.Split(s, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Seeder creates bookmarks for every link found in a document
type Seeder struct {
	bookmarkRepo domain.BookmarkRepository
	queueRepo    domain.QueueRepository // set in deferred mode
	resolver     domain.PreviewResolver
	urlDetector  *urldetector.Detector
	logger       *slog.Logger

	tags     []string
	limit    int
	skipRoot bool
	dryRun   bool
}

// SeedingStats tracks statistics for the import
type SeedingStats struct {
	URLsDetected     int
	BookmarksCreated int
	BookmarksSkipped int
	JobsQueued       int
	Errors           int
}

// Run imports the links in content until done or ctx is cancelled
func (s *Seeder) Run(ctx context.Context, content string) *SeedingStats {
	stats := &SeedingStats{}

	urls := s.urlDetector.DetectURLs(content)
	if s.limit > 0 && len(urls) > s.limit {
		urls = urls[:s.limit]
	}
	stats.URLsDetected = len(urls)

	for _, urlInfo := range urls {
		if ctx.Err() != nil {
			s.logger.Warn("Context cancelled, stopping import")
			return stats
		}

		if err := s.processURL(ctx, urlInfo, stats); err != nil {
			s.logger.Error("Failed to import URL",
				"error", err,
				"url", urlInfo.URL,
			)
			stats.Errors++
		}
	}

	return stats
}

// processURL creates one bookmark, resolving its preview inline or queueing it
func (s *Seeder) processURL(ctx context.Context, urlInfo urldetector.URLInfo, stats *SeedingStats) error {
	if s.skipRoot && urldetector.IsRootURL(urlInfo.URL) {
		s.logger.Debug("Skipping root URL (no specific content)", "url", urlInfo.URL)
		stats.BookmarksSkipped++
		return nil
	}

	canonicalURL, err := urlnorm.Canonical(urlInfo.URL)
	if err != nil {
		return fmt.Errorf("failed to canonicalize URL: %w", err)
	}

	existing, err := s.bookmarkRepo.GetByCanonicalURL(ctx, canonicalURL)
	if err == nil {
		s.logger.Debug("Bookmark already exists, skipping",
			"bookmark_id", existing.ID,
			"url", urlInfo.URL,
		)
		stats.BookmarksSkipped++
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check for duplicate: %w", err)
	}

	bookmark := &domain.Bookmark{
		ID:            uuid.New(),
		URL:           urlInfo.URL,
		CanonicalURL:  canonicalURL,
		Tags:          s.tags,
		PreviewStatus: domain.PreviewStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if s.dryRun {
		s.logger.Info("[DRY RUN] Would create bookmark",
			"bookmark_id", bookmark.ID,
			"url", urlInfo.URL,
			"platform", urlInfo.Platform,
		)
		stats.BookmarksCreated++
		return nil
	}

	if s.queueRepo == nil {
		bookmark.ApplyPreview(s.resolver.Resolve(ctx, urlInfo.URL))
	}

	if err := s.bookmarkRepo.Create(ctx, bookmark); err != nil {
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	stats.BookmarksCreated++

	if s.queueRepo != nil {
		if _, err := s.queueRepo.Enqueue(ctx, domain.JobTypeRefreshPreview, domain.RefreshPreviewPayload{
			BookmarkID: bookmark.ID.String(),
			URL:        bookmark.URL,
		}); err != nil {
			return fmt.Errorf("failed to queue preview job: %w", err)
		}
		stats.JobsQueued++
	}

	s.logger.Info("Created bookmark",
		"bookmark_id", bookmark.ID,
		"url", urlInfo.URL,
		"platform", urlInfo.Platform,
		"preview_status", bookmark.PreviewStatus,
	)

	return nil
}
