package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookmark-preview/internal/cache"
	"bookmark-preview/internal/config"
	apihttp "bookmark-preview/internal/http"
	"bookmark-preview/internal/pkg/logger"
	"bookmark-preview/internal/repository/postgres"
	"bookmark-preview/internal/repository/redis"
	"bookmark-preview/internal/service/api"
	"bookmark-preview/internal/service/preview"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Validate API-specific configuration
	if err := cfg.ValidateForAPI(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting API service...")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	// Run database migrations
	if err := postgres.RunMigrations(db, log); err != nil {
		log.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	deps := apihttp.Dependencies{
		BookmarkRepo: postgres.NewBookmarkRepository(db, log),
		AdminAPIKey:  cfg.AdminAPIKey,
	}

	// Redis is optional: it backs the shared preview cache and refresh jobs
	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		queueRepo := redis.NewQueueRepository(redisClient, log)
		deps.QueueRepo = queueRepo
		deps.QueueStats = queueRepo
	} else {
		log.Warn("REDIS_URL not set - preview cache is process-local and refresh jobs are disabled")
	}

	previewCache := cache.New(redisClient, cfg.PreviewCacheTTL, cfg.PreviewCacheSweep, log)
	resolver := preview.New(cfg.PreviewOptions(), previewCache, log)
	log.Info("Preview resolver initialized",
		"oembed_platforms", resolver.Registry().GetProviderCount(),
		"cache_ttl", cfg.PreviewCacheTTL,
	)

	deps.Resolver = resolver
	deps.PreviewCache = previewCache
	deps.Platforms = resolver.Registry()

	router := apihttp.NewRouter(log, deps)
	apiService := api.New(cfg, log, router.SetupRoutes())

	// Create a channel to track shutdown completion
	done := make(chan struct{})

	// Start API service in a goroutine
	go func() {
		defer close(done)
		if err := apiService.Start(); err != nil {
			log.Error("API service failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for either shutdown signal or service completion
	select {
	case <-quit:
		log.Info("Shutdown signal received, stopping API service...")
	case <-done:
		log.Info("API service completed")
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiService.Stop(ctx); err != nil {
		log.Error("Error stopping API service", "error", err)
	}

	log.Info("API service shutdown complete")
}
