// Package telemetry provides OpenTelemetry instrumentation for the admin API
// server. Tracing pushes spans over OTLP; metrics either push over OTLP or
// expose a Prometheus scrape endpoint, selected by configuration.
package telemetry

import (
	"errors"
	"fmt"
)

const (
	// DefaultServiceName identifies this server on exported telemetry when
	// the configuration does not name it.
	DefaultServiceName = "vtr-admin-api"

	// DefaultEndpoint is the OTLP collector the exporters talk to when the
	// configuration names none.
	DefaultEndpoint = "localhost:4318"

	// DefaultSampling is the trace sampling ratio applied when the
	// configuration leaves it unset. Sampling 5% keeps the span volume
	// manageable on a busy registry.
	DefaultSampling = 0.05
)

const (
	// MetricsModeOTLP pushes metrics to an OTLP collector
	MetricsModeOTLP = "otlp"

	// MetricsModePrometheus exposes metrics for scraping at /metrics
	MetricsModePrometheus = "prometheus"
)

// Config is the telemetry section of the server configuration.
type Config struct {
	// Enabled turns telemetry on. When false no providers are built and
	// the rest of this struct is ignored.
	Enabled bool `yaml:"enabled"`

	// ServiceName overrides the service name reported on telemetry.
	// Empty means DefaultServiceName.
	ServiceName string `yaml:"serviceName,omitempty"`

	// ServiceVersion is reported alongside the service name. Empty means
	// "unknown".
	ServiceVersion string `yaml:"serviceVersion,omitempty"`

	// Endpoint is the OTLP collector as "host:port". The exporters append
	// the /v1/traces and /v1/metrics paths themselves. Empty means
	// DefaultEndpoint.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure switches the collector connection from HTTPS to HTTP.
	// Meant for development setups only.
	Insecure bool `yaml:"insecure,omitempty"`

	// Tracing configures span export. Nil leaves tracing off.
	Tracing *TracingConfig `yaml:"tracing,omitempty"`

	// Metrics configures metric export. Nil leaves metrics off.
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig controls span sampling and export.
type TracingConfig struct {
	// Enabled turns tracing on once telemetry itself is enabled
	Enabled bool `yaml:"enabled"`

	// Sampling is the ratio of traces to keep, from 0.0 to 1.0
	Sampling float64 `yaml:"sampling,omitempty"`
}

// MetricsConfig controls metric export.
type MetricsConfig struct {
	// Enabled turns metrics on once telemetry itself is enabled
	Enabled bool `yaml:"enabled"`

	// Mode selects the export path: "otlp" pushes to the collector
	// endpoint, "prometheus" exposes a scrape handler at /metrics.
	// Empty means "otlp".
	Mode string `yaml:"mode,omitempty"`
}

// GetServiceName returns the service name, using the default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetServiceVersion returns the configured service version, falling back
// to "unknown"
func (c *Config) GetServiceVersion() string {
	if c.ServiceVersion == "" {
		return "unknown"
	}
	return c.ServiceVersion
}

// GetEndpoint returns the collector endpoint, using the default if not specified
func (c *Config) GetEndpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// GetInsecure reports whether exporters skip TLS
func (c *Config) GetInsecure() bool {
	return c.Insecure
}

// GetSampling returns the sampling ratio, using the default when unset.
// YAML cannot distinguish an absent value from an explicit 0, so 0 always
// means "use the default"; validation has already rejected anything outside
// [0, 1].
func (c *TracingConfig) GetSampling() float64 {
	if c.Sampling == 0.0 {
		return DefaultSampling
	}
	return c.Sampling
}

// GetMode returns the metrics export mode, using "otlp" if not specified
func (c *MetricsConfig) GetMode() string {
	if c.Mode == "" {
		return MetricsModeOTLP
	}
	return c.Mode
}

// Validate checks the telemetry configuration. A nil or disabled
// configuration is always valid since nothing will be built from it.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	var errs []error

	if c.Tracing != nil {
		if err := c.Tracing.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Validate checks the tracing configuration
func (c *TracingConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	if c.Sampling < 0 || c.Sampling > 1.0 {
		return fmt.Errorf("sampling must be between 0.0 and 1.0, got %f", c.Sampling)
	}

	return nil
}

// Validate checks the metrics configuration
func (c *MetricsConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	switch c.Mode {
	case "", MetricsModeOTLP, MetricsModePrometheus:
		return nil
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", MetricsModeOTLP, MetricsModePrometheus, c.Mode)
	}
}
