package main

import (
	"database/sql"
	"fmt"
	"os"

	"bookmark-preview/internal/cache"
	"bookmark-preview/internal/config"
	"bookmark-preview/internal/pkg/logger"
	"bookmark-preview/internal/repository/postgres"
	"bookmark-preview/internal/repository/redis"
	"bookmark-preview/internal/service/preview"
	"bookmark-preview/internal/service/worker"

	_ "github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Validate worker-specific configuration
	if err := cfg.ValidateForWorker(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	log := logger.New(cfg.LogLevel)
	log.Info("Starting worker service...")

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

	// Connect to Redis (NewClient pings before returning)
	redisClient, err := redis.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Refreshed previews go through the same shared cache as the API
	previewCache := cache.New(redisClient, cfg.PreviewCacheTTL, cfg.PreviewCacheSweep, log)
	resolver := preview.New(cfg.PreviewOptions(), previewCache, log)

	workerService := worker.New(
		cfg,
		log,
		postgres.NewBookmarkRepository(db, log),
		redis.NewQueueRepository(redisClient, log),
		resolver,
	)

	// Start blocks until SIGINT or SIGTERM
	if err := workerService.Start(); err != nil {
		log.Error("Worker service failed", "error", err)
		os.Exit(1)
	}

	log.Info("Worker service shutdown complete")
}
