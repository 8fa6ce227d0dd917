// Package server exposes the engine over HTTP.
//
//	GET  /health    liveness
//	GET  /plugins   registered estimators
//	POST /compile   {query, backend} -> {fingerprint, backend, compiled_query}
//	POST /query     {query, backend} -> {run_id, backend, compiled_query, rows}
//	POST /estimate  {query, backend, dataset, schema_hint, plugin, seed}
//
// Failures are answered with {"error", "kind"} and a status derived from
// the error kind.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/causalrt/internal/engine"
)

// ShutdownTimeout bounds how long ListenAndServe waits for in-flight
// requests once its context is cancelled.
const ShutdownTimeout = 10 * time.Second

// Server serves engine requests.
type Server struct {
	engine *engine.Engine
	logger *slog.Logger
}

// New creates a Server. A nil logger means slog.Default().
func New(eng *engine.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{engine: eng, logger: logger}
}

// RegisterRoutes mounts the API on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.Health)
	r.Get("/plugins", s.Plugins)
	r.Post("/compile", s.Compile)
	r.Post("/query", s.Query)
	r.Post("/estimate", s.Estimate)
}

// Handler returns the API with request logging and panic recovery.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	s.RegisterRoutes(r)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
