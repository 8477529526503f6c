// Package api serves a string map store over a small REST API.
//
// Routes under /api/v1 require the X-API-Key header. /metrics is left open
// for scraping.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
)

// NewRouter builds the chi router for s
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		// KV operations
		r.With(limitBody(maxValueBytes)).Put("/kv/{key}", s.metrics.InstrumentHandler("PUT", "/api/v1/kv/{key}", s.handlePut))
		r.Get("/kv/{key}", s.metrics.InstrumentHandler("GET", "/api/v1/kv/{key}", s.handleGet))
		r.Delete("/kv/{key}", s.metrics.InstrumentHandler("DELETE", "/api/v1/kv/{key}", s.handleDelete))
		r.Get("/kv", s.metrics.InstrumentHandler("GET", "/api/v1/kv", s.handleListKeys))

		// Persistence
		r.Post("/save", s.metrics.InstrumentHandler("POST", "/api/v1/save", s.handleSave))
		r.Post("/load", s.metrics.InstrumentHandler("POST", "/api/v1/load", s.handleLoad))

		r.Get("/stats", s.metrics.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))
	})

	return r
}

// StartServer serves kv until ctx is cancelled, then shuts down gracefully.
// Metrics are registered with the default Prometheus registry unless
// config.Metrics is set. Nothing is saved on shutdown.
func StartServer(ctx context.Context, kv *KVStore, config ServerConfig) error {
	metrics := config.Metrics
	if metrics == nil {
		metrics = NewMetrics(prometheus.DefaultRegisterer)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	server := NewServer(kv, config, metrics)

	s := &http.Server{
		Addr:              net.JoinHostPort(config.Bind, strconv.Itoa(config.Port)),
		Handler:           NewRouter(server),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting BreakDB REST API server", "addr", s.Addr)
		errCh <- s.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
