package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bookmark-preview/internal/config"
)

// APIService owns the HTTP server lifecycle
type APIService struct {
	config *config.Config
	logger *slog.Logger
	server *http.Server
}

// New creates a new API service serving handler
func New(config *config.Config, logger *slog.Logger, handler http.Handler) *APIService {
	return &APIService{
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:              ":" + config.Port,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Previews are resolved inline, so leave room for a full fetch
			WriteTimeout: config.PreviewFetchTimeout*2 + 15*time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Addr returns the address the server listens on
func (s *APIService) Addr() string {
	return s.server.Addr
}

// Start begins serving the API and blocks until the server stops.
// A graceful shutdown is not reported as an error.
func (s *APIService) Start() error {
	s.logger.Info("Starting API server", "port", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the API server
func (s *APIService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
