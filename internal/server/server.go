package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/oleg-kozlyuk-grafana/go-diffcover/internal/storage"
)

// Server serves stored diff coverage reports over HTTP with graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	store      storage.ReportStore
}

// Config holds the configuration for the HTTP server
type Config struct {
	Port   int
	Logger *slog.Logger
	// Store is where reports are read from. Required.
	Store storage.ReportStore
}

// New creates a new report server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("report store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		logger: cfg.Logger,
		store:  cfg.Store,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /reports", s.listReportsHandler)
	mux.HandleFunc("GET /reports/{org}/{repo}/{branch...}", s.getReportHandler)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           Chain(mux, RequestID, Logging(cfg.Logger), Recovery(cfg.Logger)),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

// Handler returns the server's root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
