package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	logger "github.com/sirupsen/logrus"
)

func (it *Server) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", it.handleHealthCheck)
	r.Method(http.MethodGet, "/metrics", it.metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/crawl", it.handleCrawl)

		r.Route("/sites/{siteID}", func(r chi.Router) {
			r.Post("/batches", it.handleStartBatch)
			r.Get("/batches/current", it.handleGetOpenBatch)
			r.Post("/batches/current/changes", it.handleRecordChange)
			r.Get("/batches/{batchID}", it.handleGetBatch)
			r.Post("/batches/{batchID}/finalize", it.handleFinalizeBatch)
			r.Post("/batches/{batchID}/rollback", it.handleRollbackBatch)
			r.Get("/history", it.handleHistory)
			r.Post("/fixes", it.handleImplementFixes)
			r.Post("/fixes/rollback", it.handleRollbackFixes)
			r.Post("/run", it.handleRun)
		})
	})

	return r
}

// requestLogger logs one line per request with its outcome.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		entry := logger.WithFields(logger.Fields{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("HTTP request failed")
			return
		}
		entry.Info("HTTP request")
	})
}
