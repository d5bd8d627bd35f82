// Package web provides the HTTP API for CSV imports and the bulk endpoints
// that store imported content.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pandahoho/importer/internal/config"
	"github.com/pandahoho/importer/internal/core"
	"github.com/pandahoho/importer/internal/store"
	"github.com/pandahoho/importer/internal/targets"
	"github.com/pandahoho/importer/internal/web/middleware"
)

// BulkStore is the storage behind the bulk endpoints and the import history.
type BulkStore interface {
	targets.Sink
	Ping(ctx context.Context) error
	ListImports(ctx context.Context, f store.ImportLogFilter) ([]store.ImportLogEntry, error)
	CountImports(ctx context.Context, f store.ImportLogFilter) (int64, error)
	StreamImports(ctx context.Context, f store.ImportLogFilter, fn func(store.ImportLogEntry) error) error
}

// Server is the HTTP server for the import service.
type Server struct {
	cfg      *config.Config
	targets  *core.Registry
	store    BulkStore
	limiter  *core.ImportLimiter
	sessions *SessionManager

	rate       *rateLimiter
	importRate *rateLimiter

	router *chi.Mux
	server *http.Server
}

// NewServer wires the router. reg must be built over the same store so that
// session submissions and bulk requests land in one place.
func NewServer(cfg *config.Config, reg *core.Registry, st BulkStore, limiter *core.ImportLimiter) *Server {
	s := &Server{
		cfg:     cfg,
		targets: reg,
		store:   st,
		limiter: limiter,
		sessions: NewSessionManager(cfg.Import.SessionTTL, core.SessionOptions{
			SubmitTimeout: cfg.Import.SubmitTimeout,
			ErrorLimit:    cfg.Import.ErrorDisplayLimit,
		}),
		rate:       newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute),
		importRate: newRateLimiter(cfg.Rate.ImportLimit, time.Minute),
		router:     chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rate.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	importRate := func(next http.Handler) http.Handler {
		if !s.cfg.Rate.Enabled {
			return next
		}
		return s.importRate.middleware(next)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security.RequireAPIKey, s.cfg.Security.APIKeys))
		r.Use(withOrigin)

		r.Get("/targets", s.handleListTargets)

		r.Route("/import", func(r chi.Router) {
			r.Get("/{target}/template", s.handleTemplate)
			r.With(importRate).Post("/{target}/preview", s.handlePreview)
			r.Post("/{target}/sessions", s.handleOpenSession)

			r.Get("/sessions/{id}", s.handleGetSession)
			r.With(importRate).Post("/sessions/{id}/file", s.handleSelectFile)
			r.Post("/sessions/{id}/submit", s.handleSubmit)
			r.Delete("/sessions/{id}", s.handleCloseSession)
		})

		r.With(importRate).Post("/{resource}/bulk", s.handleBulk)

		r.Get("/imports", s.handleImportLog)
		r.Get("/imports/export", s.handleImportLogExport)
	})
}

// Start listens on the configured address. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// RunBackground runs the session janitor and rate limiter cleanup until ctx
// is cancelled.
func (s *Server) RunBackground(ctx context.Context) error {
	go s.rate.run(ctx)
	go s.importRate.run(ctx)
	s.sessions.Run(ctx)
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and closes
// every open import session.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.sessions.CloseAll()
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Sessions exposes the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.respondError(w, r, err, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Count(),
		"imports":  s.limiter.Status(),
	})
}

// securityHeaders adds security headers to all responses. The API serves
// only JSON and CSV, so the policy forbids every resource type.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
