// Package api exposes the HTTP interface for the analyzer service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/baseline-analyzer/internal/analyzer"
	"github.com/JakeFAU/baseline-analyzer/internal/baseline"
	"github.com/JakeFAU/baseline-analyzer/internal/config"
	"github.com/JakeFAU/baseline-analyzer/internal/features"
	"github.com/JakeFAU/baseline-analyzer/internal/metrics"
	"github.com/JakeFAU/baseline-analyzer/internal/report"
)

// Analyzer is the synchronous analysis surface.
type Analyzer interface {
	Analyze(ctx context.Context, url string) (baseline.AnalysisResult, error)
	Bulk(ctx context.Context, urls []string) (analyzer.BulkResult, error)
	Compare(ctx context.Context, urls []string) (analyzer.Comparison, error)
}

// JobSubmitter accepts asynchronous analyses.
type JobSubmitter interface {
	Submit(ctx context.Context, url string) (baseline.Job, error)
}

// ReadinessCheck reports whether a downstream dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Server wires HTTP handlers to the analyzer, the dispatcher and the store.
type Server struct {
	router   chi.Router
	analyzer Analyzer
	store    baseline.AnalysisStore
	jobs     JobSubmitter
	catalog  *features.Catalog
	reports  *report.Generator
	checks   map[string]ReadinessCheck
	cfg      config.Config
	logger   *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithJobs enables asynchronous submissions.
func WithJobs(j JobSubmitter) Option {
	return func(s *Server) { s.jobs = j }
}

// WithCatalog enables the feature catalog route.
func WithCatalog(c *features.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithClock sets the clock stamped into rendered reports.
func WithClock(c baseline.Clock) Option {
	return func(s *Server) { s.reports = report.NewGenerator(c) }
}

// WithReadinessCheck adds a named check to /readyz.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	an Analyzer,
	store baseline.AnalysisStore,
	cfg config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	metrics.Init()
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		analyzer: an,
		store:    store,
		reports:  report.NewGenerator(nil),
		checks:   map[string]ReadinessCheck{},
		cfg:      cfg,
		logger:   logger.Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(corsMiddleware(cfg.Server.CORSOrigins))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey, s.logger))
		}
		r.Post("/analyze", s.analyze)
		r.Post("/analyze/bulk", s.bulk)
		r.Post("/compare", s.compare)
		r.Get("/features", s.listFeatures)
		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", s.submitAnalysis)
			r.Get("/", s.listAnalyses)
			r.Route("/{analysis_id}", func(r chi.Router) {
				r.Get("/", s.getAnalysis)
				r.Get("/report", s.getReport)
				r.Get("/badge", s.getBadge)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	failures := map[string]string{}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.logger.Warn("readiness check failed", zap.Any("failures", failures))
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failures": failures})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" || len(reqID) > 128 {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					writeError(logger, w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-API-Key", "X-Request-ID", "If-None-Match"},
		ExposedHeaders: []string{"ETag", "X-Request-ID", "Location", "Content-Disposition"},
		MaxAge:         600,
	}).Handler
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}

func apiKeyMiddleware(expected string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(logger, w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	writeJSON(s.logger, w, status, payload)
}

func writeJSON(logger *zap.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(logger *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(logger, w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var invalid *baseline.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		writeError(s.logger, w, http.StatusBadRequest, invalid.Message)
	case errors.Is(err, baseline.ErrInvalidInput):
		writeError(s.logger, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, baseline.ErrNotFound):
		writeError(s.logger, w, http.StatusNotFound, "analysis not found")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(s.logger, w, http.StatusGatewayTimeout, "analysis timed out")
	default:
		s.logger.Error(fallback,
			zap.String("request_id", RequestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback, "message": err.Error()})
	}
}
