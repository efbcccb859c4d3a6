package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/seoremedy/internal/domain/commands"
	"github.com/rios0rios0/seoremedy/internal/domain/entities"
	"github.com/rios0rios0/seoremedy/internal/infrastructure/repositories/metrics"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server exposes crawls, batch operations and the pipeline over HTTP.
type Server struct {
	settings *entities.Settings
	tracking commands.ChangeTracking
	crawl    commands.Crawl
	pipeline commands.Pipeline
	metrics  http.Handler
	router   http.Handler
}

// NewServer creates a new Server.
func NewServer(
	settings *entities.Settings,
	tracking commands.ChangeTracking,
	crawl commands.Crawl,
	pipeline commands.Pipeline,
	metricsRepository *metrics.PrometheusMetricsRepository,
) *Server {
	it := &Server{
		settings: settings,
		tracking: tracking,
		crawl:    crawl,
		pipeline: pipeline,
		metrics:  metricsRepository.Handler(),
	}
	it.router = it.setupRouter()
	return it
}

// Handler returns the routed handler.
func (it *Server) Handler() http.Handler {
	return it.router
}

// ListenAndServe serves on addr, or on the configured address when addr is empty, until
// ctx is done. In-flight requests then get a grace period to finish.
func (it *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = it.settings.Server.Addr
	}
	//nolint:exhaustruct // Minimal Server initialization with required fields only
	server := &http.Server{
		Addr:              addr,
		Handler:           it.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}
