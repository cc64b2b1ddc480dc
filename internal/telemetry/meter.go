package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// DefaultMetricsInterval is how often the OTLP reader pushes collected
// metrics to the collector.
const DefaultMetricsInterval = 60 * time.Second

// newMeterProvider builds the meter provider for the configuration. With
// metrics disabled it returns a no-op provider and a nil shutdown hook. In
// Prometheus mode the returned handler serves scrapes and belongs at
// /metrics; in OTLP mode the handler is nil and metrics are pushed to the
// collector instead.
func newMeterProvider(ctx context.Context, cfg *Config, res *resource.Resource) (metric.MeterProvider, http.Handler, shutdownFunc, error) {
	mc := cfg.Metrics
	if mc == nil || !mc.Enabled {
		slog.Info("Metrics disabled, using no-op meter provider")
		return noop.NewMeterProvider(), nil, nil, nil
	}

	if mc.GetMode() == MetricsModePrometheus {
		return newPrometheusMeterProvider(res)
	}
	return newOTLPMeterProvider(ctx, cfg, res)
}

// newPrometheusMeterProvider registers the OpenTelemetry exporter on a
// dedicated Prometheus registry. A private registry keeps process-wide
// collectors registered by other libraries out of the scrape output.
func newPrometheusMeterProvider(res *resource.Resource) (metric.MeterProvider, http.Handler, shutdownFunc, error) {
	registry := prometheus.NewRegistry()

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized", "mode", MetricsModePrometheus)

	return mp, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), mp.Shutdown, nil
}

// newOTLPMeterProvider pushes metrics to the collector on a fixed interval.
func newOTLPMeterProvider(ctx context.Context, cfg *Config, res *resource.Resource) (metric.MeterProvider, http.Handler, shutdownFunc, error) {
	exporterOpts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.GetEndpoint()),
	}
	if cfg.GetInsecure() {
		exporterOpts = append(exporterOpts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, exporterOpts...)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(DefaultMetricsInterval)),
		),
	)
	otel.SetMeterProvider(mp)

	slog.Info("Metrics initialized",
		"mode", MetricsModeOTLP,
		"endpoint", cfg.GetEndpoint(),
		"insecure", cfg.GetInsecure(),
	)

	return mp, nil, mp.Shutdown, nil
}
