package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegistryMetricsMeterName scopes the registry instruments to this module
const RegistryMetricsMeterName = "github.com/verinode/token-registry-server/registry"

// RegistryMetrics bundles the instruments the token routes report to.
// A nil *RegistryMetrics is valid and records nothing, so callers never
// have to branch on whether metrics are enabled.
type RegistryMetrics struct {
	registrationsTotal metric.Int64Counter
	tokensTotal        metric.Int64Gauge
}

// NewRegistryMetrics builds the registry instruments on the given meter
// provider. A nil provider yields a nil instance, which is the no-op form.
func NewRegistryMetrics(provider metric.MeterProvider) (*RegistryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RegistryMetricsMeterName)

	registrationsTotal, err := meter.Int64Counter(
		"vtr_admin_api_token_registrations_total",
		metric.WithDescription("Total number of token registrations accepted"),
		metric.WithUnit("{registration}"),
	)
	if err != nil {
		return nil, err
	}

	tokensTotal, err := meter.Int64Gauge(
		"vtr_admin_api_tokens_total",
		metric.WithDescription("Number of tokens in the registry"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	return &RegistryMetrics{
		registrationsTotal: registrationsTotal,
		tokensTotal:        tokensTotal,
	}, nil
}

// RecordRegistration counts an accepted token registration. The explicitID
// attribute distinguishes writes that supplied an identifier from ones the
// server numbered itself.
func (m *RegistryMetrics) RecordRegistration(ctx context.Context, explicitID bool) {
	if m == nil || m.registrationsTotal == nil {
		return
	}

	m.registrationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("explicit_id", explicitID),
	))
}

// RecordTokensTotal reports the current size of the registry
func (m *RegistryMetrics) RecordTokensTotal(ctx context.Context, count int64) {
	if m == nil || m.tokensTotal == nil {
		return
	}

	m.tokensTotal.Record(ctx, count)
}
