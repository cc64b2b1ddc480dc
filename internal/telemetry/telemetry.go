package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// shutdownFunc flushes and stops one provider.
type shutdownFunc func(context.Context) error

// Telemetry bundles the configured providers with their shutdown hooks.
// Disabled telemetry still yields working no-op providers, so callers never
// have to branch on whether telemetry is on.
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricsHandler http.Handler
	shutdowns      []shutdownFunc
}

// Option configures New
type Option func(*builderOptions)

// builderOptions collects the inputs to New
type builderOptions struct {
	config *Config
}

// WithTelemetryConfig supplies the telemetry section of the server
// configuration. A nil config behaves like disabled telemetry.
func WithTelemetryConfig(cfg *Config) Option {
	return func(o *builderOptions) {
		o.config = cfg
	}
}

// New builds the tracing and metrics providers described by the
// configuration. The returned Telemetry always carries usable providers;
// when telemetry is disabled they are no-ops. Callers must invoke Shutdown
// on exit so batched spans and pending metrics get flushed.
func New(ctx context.Context, opts ...Option) (*Telemetry, error) {
	options := &builderOptions{}
	for _, opt := range opts {
		opt(options)
	}

	cfg := options.config
	if cfg == nil || !cfg.Enabled {
		slog.Debug("Telemetry disabled")
		return &Telemetry{
			tracerProvider: tracenoop.NewTracerProvider(),
			meterProvider:  noop.NewMeterProvider(),
		}, nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	res, err := newServiceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to describe service resource: %w", err)
	}

	t := &Telemetry{}

	tracerProvider, stopTracing, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}
	t.tracerProvider = tracerProvider
	if stopTracing != nil {
		t.shutdowns = append(t.shutdowns, stopTracing)
	}

	meterProvider, metricsHandler, stopMetrics, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		// The tracer provider is already live; wind it down before
		// reporting the failure.
		if stopTracing != nil {
			_ = stopTracing(ctx)
		}
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}
	t.meterProvider = meterProvider
	t.metricsHandler = metricsHandler
	if stopMetrics != nil {
		t.shutdowns = append(t.shutdowns, stopMetrics)
	}

	slog.Info("Telemetry initialized",
		"service_name", cfg.GetServiceName(),
		"service_version", cfg.GetServiceVersion(),
	)

	return t, nil
}

// newServiceResource describes this server on exported telemetry. The
// resource is assembled from scratch instead of resource.Default() so the
// schema URL matches the semconv version compiled in.
func newServiceResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.GetServiceName()),
			semconv.ServiceVersion(cfg.GetServiceVersion()),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
}

// TracerProvider returns the tracer provider. Never nil.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the meter provider. Never nil.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// MetricsHandler returns the Prometheus scrape handler, or nil when metrics
// are disabled or pushed over OTLP instead.
func (t *Telemetry) MetricsHandler() http.Handler {
	return t.metricsHandler
}

// Tracer hands out a tracer scoped to the given instrumentation name
func (t *Telemetry) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return t.tracerProvider.Tracer(name, opts...)
}

// Meter hands out a meter scoped to the given instrumentation name
func (t *Telemetry) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	return t.meterProvider.Meter(name, opts...)
}

// Shutdown flushes pending telemetry and stops the providers. Calling it
// again is harmless; the hooks only run once.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	shutdowns := t.shutdowns
	t.shutdowns = nil

	var errs []error
	for _, stop := range shutdowns {
		if err := stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown: %w", errors.Join(errs...))
	}
	return nil
}
