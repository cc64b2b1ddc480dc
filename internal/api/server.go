// Package api assembles the HTTP surface of the admin server: route
// mounting, middleware application and request logging.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	v1 "github.com/verinode/token-registry-server/internal/api/v1"
	"github.com/verinode/token-registry-server/internal/service"
	"github.com/verinode/token-registry-server/internal/telemetry"
)

// ServerOption adjusts how NewServer assembles the router
type ServerOption func(*serverConfig)

type serverConfig struct {
	middlewares     []func(http.Handler) http.Handler
	metricsHandler  http.Handler
	registryMetrics *telemetry.RegistryMetrics
}

// WithMiddlewares appends middleware in the order it should wrap requests
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler mounts a metrics scrape handler at /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithRegistryMetrics enables token registry metrics on the token routes
func WithRegistryMetrics(m *telemetry.RegistryMetrics) ServerOption {
	return func(cfg *serverConfig) {
		cfg.registryMetrics = m
	}
}

// NewServer builds the router: operational probes at the root, the token
// registry under /tokens, and optionally a /metrics scrape endpoint.
func NewServer(svc service.TokenRegistry, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	r.Mount("/", v1.HealthRouter(svc))
	r.Mount("/tokens", v1.Router(svc, v1.WithRegistryMetrics(cfg.registryMetrics)))

	// The scrape endpoint answers GET only.
	if cfg.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metricsHandler)
	}

	return r
}

// LoggingMiddleware emits one debug line per request, tagged with the
// request id assigned upstream.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
