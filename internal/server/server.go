// Package server exposes the journal statistics over a read-only JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	"trade-journal/internal/journal"
	"trade-journal/internal/logging"
	"trade-journal/internal/metrics"
)

// Config holds server configuration.
type Config struct {
	Host            string
	Port            int
	ProfitFactorCap float64
	// RateLimit is requests per second shared by all clients; 0 disables it.
	RateLimit float64
	RateBurst int
}

// Server is the HTTP front of a journal.Service.
type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
	mux        *http.ServeMux
	svc        *journal.Service
	metrics    *metrics.Registry
	pfCap      float64
	limiter    *rate.Limiter
}

// NewServer creates a new HTTP server. The registry should be the one the
// service observer reports to.
func NewServer(cfg Config, svc *journal.Service, reg *metrics.Registry, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:  logger,
		mux:     mux,
		svc:     svc,
		metrics: reg,
		pfCap:   cfg.ProfitFactorCap,
		limiter: newLimiter(cfg.RateLimit, cfg.RateBurst),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/presets", s.handlePresets)
	s.mux.HandleFunc("GET /api/v1/stats/summary", s.handleSummary)
	s.mux.HandleFunc("GET /api/v1/stats/categories", s.handleCategories)
	s.mux.HandleFunc("GET /api/v1/stats/calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /api/v1/stats/report", s.handleReport)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{Registry: s.metrics}))
}

// Handler returns the mux wrapped in logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.limiter != nil {
		h = RateLimitMiddleware(s.limiter)(h)
	}
	h = metrics.HTTPMiddleware(s.metrics)(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = contextLogger(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.NewHandler(s.logger)(h)
	return h
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down within grace.
func (s *Server) Run(ctx context.Context, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// contextLogger exposes the request logger through logging.FromContext so the
// store logs with the request id.
func contextLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithLogger(r.Context(), *hlog.FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(r *http.Request) string {
	if r == nil {
		return ""
	}
	if id, ok := hlog.IDFromRequest(r); ok {
		return id.String()
	}
	return ""
}
