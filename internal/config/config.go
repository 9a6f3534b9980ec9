package config

import (
	"flag"
	"fmt"
	"time"

	"bookmark-preview/internal/service/preview"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT"         default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL"    default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`
	AdminAPIKey string `envconfig:"ADMIN_API_KEY"`

	PreviewCacheTTL     time.Duration `envconfig:"PREVIEW_CACHE_TTL"      default:"24h"`
	PreviewCacheSweep   time.Duration `envconfig:"PREVIEW_CACHE_SWEEP"    default:"5m"`
	PreviewFetchTimeout time.Duration `envconfig:"PREVIEW_FETCH_TIMEOUT"  default:"10s"`
	PreviewMaxPageBytes int64         `envconfig:"PREVIEW_MAX_PAGE_BYTES" default:"5242880"`
	PreviewUserAgent    string        `envconfig:"PREVIEW_USER_AGENT"`
	PreviewDeniedHosts  []string      `envconfig:"PREVIEW_DENIED_HOSTS"`

	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"5s"`
	WorkerBatchSize    int           `envconfig:"WORKER_BATCH_SIZE"    default:"10"`
}

// Load reads the environment, then lets command line flags override it
func Load() (*Config, error) {
	config, err := FromEnv()
	if err != nil {
		return nil, err
	}

	// Command line flags override environment
	flag.StringVar(&config.Port, "port", config.Port, "Server port")
	flag.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level")
	flag.Parse()

	return config, nil
}

// FromEnv reads the environment only, for binaries that parse their own flags
func FromEnv() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return &config, nil
}

// PreviewOptions returns the outbound settings of the preview pipeline
func (c *Config) PreviewOptions() preview.Options {
	return preview.Options{
		UserAgent:    c.PreviewUserAgent,
		FetchTimeout: c.PreviewFetchTimeout,
		MaxPageBytes: c.PreviewMaxPageBytes,
		DeniedHosts:  c.PreviewDeniedHosts,
		CacheTTL:     c.PreviewCacheTTL,
	}
}

// ValidateForWorker ensures all required fields for worker service are present
func (c *Config) ValidateForWorker() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("environment variable DATABASE_URL is required for worker service")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("environment variable REDIS_URL is required for worker service")
	}
	if c.WorkerBatchSize <= 0 {
		return fmt.Errorf("WORKER_BATCH_SIZE must be positive, got %d", c.WorkerBatchSize)
	}
	return nil
}

// ValidateForAPI ensures all required fields for API service are present.
// Redis is optional: without it the cache is process-local and refresh jobs
// are unavailable.
func (c *Config) ValidateForAPI() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("environment variable DATABASE_URL is required for API service")
	}
	return nil
}

// ValidateForDBUtil ensures the database utility can connect
func (c *Config) ValidateForDBUtil() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("environment variable DATABASE_URL is required")
	}
	return nil
}
