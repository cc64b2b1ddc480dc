package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/verinode/token-registry-server/internal/api"
	"github.com/verinode/token-registry-server/internal/auth"
	"github.com/verinode/token-registry-server/internal/config"
	"github.com/verinode/token-registry-server/internal/db"
	"github.com/verinode/token-registry-server/internal/service"
	database "github.com/verinode/token-registry-server/internal/service/db"
	"github.com/verinode/token-registry-server/internal/telemetry"
)

const (
	defaultHTTPAddress    = ":8080"
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second
)

// defaultPublicPaths never require a credential
var defaultPublicPaths = []string{"/health", "/readiness", "/version", "/metrics"}

// RegistryAppOptions configures one aspect of the app under construction
type RegistryAppOptions func(*builderState) error

// builderState accumulates everything NewRegistryApp needs before wiring.
// The component overrides exist so tests can assemble an app without a
// reachable database.
type builderState struct {
	config *config.Config

	tokenService service.TokenRegistry

	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	authMiddleware func(http.Handler) http.Handler

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func newBuilderState(opts ...RegistryAppOptions) (*builderState, error) {
	b := &builderState{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// NewRegistryApp assembles a runnable admin API server from the given
// options. Any construction failure after the connection pool opens closes
// the pool before returning.
func NewRegistryApp(
	ctx context.Context,
	opts ...RegistryAppOptions,
) (*RegistryApp, error) {
	b, err := newBuilderState(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	components, err := buildServiceComponents(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	cleanupNeeded := true
	defer func() {
		if cleanupNeeded && components.Pool != nil {
			components.Pool.Close()
		}
	}()

	if b.authMiddleware == nil {
		var authCfg *config.AuthConfig
		if b.config != nil {
			authCfg = b.config.Auth
		}
		b.authMiddleware, err = auth.NewFromConfig(authCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build auth middleware: %w", err)
		}
	}

	httpServer, err := buildHTTPServer(ctx, b, components.TokenService)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	// Ownership of the pool moves to the app. Stop releases it through this
	// hook once the server has drained.
	pool := components.Pool
	cancelFunc := func() {
		if pool != nil {
			slog.Info("Closing database connection pool")
			pool.Close()
		}
		cancel()
	}

	return &RegistryApp{
		config:     b.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// WithConfig supplies the loaded configuration
func WithConfig(c *config.Config) RegistryAppOptions {
	return func(b *builderState) error {
		b.config = c
		return nil
	}
}

// WithAddress sets the listen address. The host may be empty to bind every
// interface; the port is mandatory.
func WithAddress(addr string) RegistryAppOptions {
	return func(b *builderState) error {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return fmt.Errorf("invalid listen address: %w", err)
		}
		if port == "" {
			return fmt.Errorf("listen address %q is missing a port", addr)
		}
		switch host {
		case "":
			host = "0.0.0.0"
		case "localhost":
			host = "127.0.0.1"
		}
		if _, err := netip.ParseAddrPort(net.JoinHostPort(host, port)); err != nil {
			return fmt.Errorf("invalid listen address: %w", err)
		}

		b.address = addr
		return nil
	}
}

// WithMiddlewares replaces the default middleware chain. The worker
// throttle and the credential check are still appended after it.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) RegistryAppOptions {
	return func(b *builderState) error {
		b.middlewares = mw
		return nil
	}
}

// WithTokenService injects the registry service, skipping pool construction.
// The injector keeps ownership of whatever storage backs the service.
func WithTokenService(svc service.TokenRegistry) RegistryAppOptions {
	return func(b *builderState) error {
		b.tokenService = svc
		return nil
	}
}

// WithAuthMiddleware injects the credential check middleware
func WithAuthMiddleware(mw func(http.Handler) http.Handler) RegistryAppOptions {
	return func(b *builderState) error {
		b.authMiddleware = mw
		return nil
	}
}

// WithMeterProvider enables HTTP and registry metrics on the given provider
func WithMeterProvider(mp metric.MeterProvider) RegistryAppOptions {
	return func(b *builderState) error {
		b.meterProvider = mp
		return nil
	}
}

// WithTracerProvider enables HTTP and storage tracing on the given provider
func WithTracerProvider(tp trace.TracerProvider) RegistryAppOptions {
	return func(b *builderState) error {
		b.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler mounts the handler serving scrapes at /metrics
func WithMetricsHandler(h http.Handler) RegistryAppOptions {
	return func(b *builderState) error {
		b.metricsHandler = h
		return nil
	}
}

// buildServiceComponents opens the database connection pool and builds the
// token registry service on top of it. An injected service short-circuits
// both steps.
func buildServiceComponents(
	ctx context.Context,
	b *builderState,
) (*Components, error) {
	if b.tokenService != nil {
		return &Components{TokenService: b.tokenService}, nil
	}

	slog.Info("Initializing service components")

	if b.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if b.config.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	pool, err := db.NewPool(ctx, b.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	svcOpts := []database.Option{
		database.WithConnectionPool(pool),
	}
	if b.tracerProvider != nil {
		svcOpts = append(svcOpts, database.WithTracer(b.tracerProvider.Tracer(database.ServiceTracerName)))
		slog.Debug("Database service tracing enabled")
	}

	svc, err := database.New(svcOpts...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create token registry service: %w", err)
	}

	slog.Info("Service components initialized successfully")
	return &Components{
		TokenService: svc,
		Pool:         pool,
	}, nil
}

// middlewareChain assembles the ordered middleware stack. Tracing and
// metrics sit outermost so requests rejected further in still show up in
// telemetry. The worker throttle and the credential check close the chain,
// in that order, so every request downstream of the throttle runs under
// the configured concurrency cap.
func middlewareChain(b *builderState) ([]func(http.Handler) http.Handler, error) {
	chain := b.middlewares
	if chain == nil {
		chain = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	if b.meterProvider != nil {
		metricsMw, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMw != nil {
			chain = append([]func(http.Handler) http.Handler{metricsMw}, chain...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}
	if b.tracerProvider != nil {
		tracingMw := telemetry.TracingMiddleware(b.tracerProvider)
		chain = append([]func(http.Handler) http.Handler{tracingMw}, chain...)
		slog.Info("HTTP tracing middleware enabled")
	}

	// The default of one worker runs requests strictly one at a time, which
	// keeps identifier assignment for id-less registrations sequential.
	var serverCfg *config.ServerConfig
	if b.config != nil {
		serverCfg = b.config.Server
	}
	chain = append(chain, middleware.ThrottleBacklog(
		serverCfg.GetWorkers(),
		serverCfg.GetBacklog(),
		serverCfg.GetBacklogTimeout(),
	))
	slog.Info("Request execution capped", "workers", serverCfg.GetWorkers())

	publicPaths := defaultPublicPaths
	if b.config != nil && b.config.Auth != nil && len(b.config.Auth.PublicPaths) > 0 {
		publicPaths = append(publicPaths, b.config.Auth.PublicPaths...)
	}
	chain = append(chain, auth.WrapWithPublicPaths(b.authMiddleware, publicPaths))

	return chain, nil
}

// buildHTTPServer wires the router and middleware chain into an http.Server
func buildHTTPServer(
	_ context.Context,
	b *builderState,
	svc service.TokenRegistry,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	chain, err := middlewareChain(b)
	if err != nil {
		return nil, err
	}
	b.middlewares = chain

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(chain...),
	}

	if b.meterProvider != nil {
		registryMetrics, err := telemetry.NewRegistryMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create registry metrics: %w", err)
		}
		if registryMetrics != nil {
			serverOpts = append(serverOpts, api.WithRegistryMetrics(registryMetrics))
			slog.Info("Registry metrics enabled")
		}
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}

	server := &http.Server{
		Addr:         b.address,
		Handler:      api.NewServer(svc, serverOpts...),
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
