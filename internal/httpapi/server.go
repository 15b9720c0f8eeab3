// Package httpapi exposes the waterfall analyzer over HTTP: JSON
// analyze/distribute endpoints, a Prometheus metrics endpoint, and a
// WebSocket stream of audit-trail progress. Grounded on the teacher's
// internal/interfaces/http/server.go (gorilla/mux router, request-ID and
// logging middleware, local-listen health check) and
// internal/interfaces/http/handlers/handlers.go (writeJSON/writeError
// helpers).
package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Eran5102/Valuation-sub003/internal/auditstore"
	"github.com/Eran5102/Valuation-sub003/internal/captable"
	"github.com/Eran5102/Valuation-sub003/internal/money"
	"github.com/Eran5102/Valuation-sub003/internal/ratelimit"
	"github.com/Eran5102/Valuation-sub003/internal/resultcache"
	"github.com/Eran5102/Valuation-sub003/internal/telemetry"
	"github.com/Eran5102/Valuation-sub003/internal/waterfall"
)

type requestIDKey struct{}

// Server is the HTTP front end to the waterfall analyzer.
type Server struct {
	router   *mux.Router
	server   *http.Server
	log      zerolog.Logger
	cache    resultcache.Cache
	metrics  *telemetry.MetricsRegistry
	limiter  *ratelimit.Limiter
	cacheTTL time.Duration
	store    *auditstore.Store
}

// SetAuditStore attaches an optional persistence layer: every freshly
// computed (not cache-served) /v1/analyze result then also records its
// audit trail to Postgres in the
// background, so a slow or down database never adds latency to the
// response (spec.md §7's "persistence failure is never fatal to an
// analysis").
func (s *Server) SetAuditStore(store *auditstore.Store) {
	s.store = store
}

// Config configures the HTTP server.
type Config struct {
	Addr               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
	CacheTTL           time.Duration
}

// DefaultConfig returns conservative server timeouts and rate limits.
func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		ReadTimeout:        10 * time.Second,
		WriteTimeout:       10 * time.Second,
		IdleTimeout:        60 * time.Second,
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
		CacheTTL:           5 * time.Minute,
	}
}

// NewServer wires routes, middleware, and dependencies and returns a
// Server ready to Start.
func NewServer(cfg Config, cache resultcache.Cache, metrics *telemetry.MetricsRegistry, logger zerolog.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		log:      logger,
		cache:    cache,
		metrics:  metrics,
		limiter:  ratelimit.NewLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		cacheTTL: cfg.CacheTTL,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/analyze", s.handleAnalyze).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/distribute", s.handleDistribute).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/stream", s.handleStream).Methods(http.MethodGet)
	s.router.PathPrefix("/metrics").Handler(s.metrics.Handler()).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// Start begins serving; blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting httpapi server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		s.log.Info().
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientKey(r)) {
			writeError(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	if id == "" {
		return "unknown"
	}
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack delegates to the underlying ResponseWriter so /v1/stream's
// gorilla/websocket upgrade still works when handleStream runs behind
// loggingMiddleware's statusRecorder wrapper. Without this, the embedded
// http.ResponseWriter satisfies http.Hijacker only by accident (never,
// since statusRecorder itself declares no Hijack method), and
// websocket.Upgrader.Upgrade's internal type assertion on http.Hijacker
// fails for every request, regardless of what the concrete writer beneath
// it supports.
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("httpapi: underlying ResponseWriter does not support hijacking")
	}
	return hijacker.Hijack()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "endpoint_not_found", "the requested endpoint does not exist")
}

// analyzeRequest is the POST /v1/analyze request body.
type analyzeRequest struct {
	CapTable captable.CapTable `json:"capTable"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	ct := req.CapTable.Normalized()
	key := ct.ContentHash()

	if cached, found, err := s.cache.Get(r.Context(), key); err == nil && found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	result, err := waterfall.Analyze(ct)
	if err != nil {
		var ve *captable.ValidationError
		if errors.As(err, &ve) {
			writeError(w, r, http.StatusUnprocessableEntity, string(ve.Kind), ve.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}

	s.metrics.ObserveMetrics("ok", result.Metrics)
	s.metrics.ObserveTrail(result.Trail)
	s.metrics.ObserveBreakpointCounts(breakpointCountsByType(result.Breakpoints))

	if err := s.cache.Set(r.Context(), key, result, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to populate result cache")
	}

	if s.store != nil {
		analysisID := uuid.New().String()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.store.RecordAnalysis(ctx, analysisID, result.VerificationHash, result.Trail, result.Validation); err != nil {
				s.log.Warn().Err(err).Str("analysis_id", analysisID).Msg("failed to persist audit trail")
			}
		}()
	}

	writeJSON(w, http.StatusOK, result)
}

// distributeRequest is the POST /v1/distribute request body.
type distributeRequest struct {
	CapTable  captable.CapTable `json:"capTable"`
	ExitValue money.Decimal     `json:"exitValue"`
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	var req distributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	ct := req.CapTable.Normalized()
	result, err := waterfall.Analyze(ct)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "analysis_failed", err.Error())
		return
	}

	dist, err := waterfall.Distribute(ct, result.Breakpoints, req.ExitValue)
	if err != nil {
		var de *waterfall.DistributionError
		if errors.As(err, &de) {
			writeError(w, r, http.StatusUnprocessableEntity, string(de.Kind), de.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "distribution_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dist)
}

// breakpointCountsByType tallies result.Breakpoints by Type for
// telemetry.MetricsRegistry.ObserveBreakpointCounts.
func breakpointCountsByType(breakpoints []waterfall.Breakpoint) map[string]int {
	counts := make(map[string]int)
	for _, bp := range breakpoints {
		counts[string(bp.Type)]++
	}
	return counts
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"json_encoding_failed"}`, http.StatusInternalServerError)
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFrom(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
