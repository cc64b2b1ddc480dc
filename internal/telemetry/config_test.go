package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	empty := &Config{}

	assert.Equal(t, DefaultServiceName, empty.GetServiceName())
	assert.Equal(t, "unknown", empty.GetServiceVersion())
	assert.Equal(t, DefaultEndpoint, empty.GetEndpoint())
	assert.False(t, empty.GetInsecure())
}

func TestConfig_Overrides(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		ServiceName:    "registry-canary",
		ServiceVersion: "v0.2.0",
		Endpoint:       "collector.internal:4318",
		Insecure:       true,
	}

	assert.Equal(t, "registry-canary", cfg.GetServiceName())
	assert.Equal(t, "v0.2.0", cfg.GetServiceVersion())
	assert.Equal(t, "collector.internal:4318", cfg.GetEndpoint())
	assert.True(t, cfg.GetInsecure())
}

func TestTracingConfig_GetSampling(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sampling float64
		want     float64
	}{
		{
			name:     "unset falls back to default",
			sampling: 0,
			want:     DefaultSampling,
		},
		{
			name:     "configured ratio wins",
			sampling: 0.3,
			want:     0.3,
		},
		{
			name:     "full sampling preserved",
			sampling: 1.0,
			want:     1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tc := &TracingConfig{Enabled: true, Sampling: tt.sampling}
			assert.InDelta(t, tt.want, tc.GetSampling(), 0.0001)
		})
	}
}

func TestMetricsConfig_GetMode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MetricsModeOTLP, (&MetricsConfig{}).GetMode())
	assert.Equal(t, MetricsModePrometheus, (&MetricsConfig{Mode: MetricsModePrometheus}).GetMode())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		config        *Config
		wantErr       bool
		errorContains []string
	}{
		{
			name:   "nil config is valid",
			config: nil,
		},
		{
			name: "disabled config skips section validation",
			config: &Config{
				Enabled: false,
				Tracing: &TracingConfig{Enabled: true, Sampling: 99},
				Metrics: &MetricsConfig{Enabled: true, Mode: "statsd"},
			},
		},
		{
			name: "enabled with valid sections",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 0.1},
				Metrics: &MetricsConfig{Enabled: true, Mode: MetricsModePrometheus},
			},
		},
		{
			name: "enabled with no sections",
			config: &Config{
				Enabled: true,
			},
		},
		{
			name: "sampling above one",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 1.5},
			},
			wantErr:       true,
			errorContains: []string{"tracing:", "sampling must be between"},
		},
		{
			name: "negative sampling",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: -0.5},
			},
			wantErr:       true,
			errorContains: []string{"tracing:"},
		},
		{
			name: "unknown metrics mode",
			config: &Config{
				Enabled: true,
				Metrics: &MetricsConfig{Enabled: true, Mode: "graphite"},
			},
			wantErr:       true,
			errorContains: []string{"metrics:", "mode must be"},
		},
		{
			name: "both sections invalid reports both",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: true, Sampling: 2},
				Metrics: &MetricsConfig{Enabled: true, Mode: "graphite"},
			},
			wantErr:       true,
			errorContains: []string{"tracing:", "metrics:"},
		},
		{
			name: "disabled sections are not validated",
			config: &Config{
				Enabled: true,
				Tracing: &TracingConfig{Enabled: false, Sampling: 2},
				Metrics: &MetricsConfig{Enabled: false, Mode: "graphite"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			assert.Error(t, err)
			for _, fragment := range tt.errorContains {
				assert.Contains(t, err.Error(), fragment)
			}
		})
	}
}

func TestTracingConfig_Validate(t *testing.T) {
	t.Parallel()

	var nilConfig *TracingConfig
	assert.NoError(t, nilConfig.Validate())

	assert.NoError(t, (&TracingConfig{Enabled: true}).Validate())
	assert.NoError(t, (&TracingConfig{Enabled: true, Sampling: 1.0}).Validate())
	assert.Error(t, (&TracingConfig{Enabled: true, Sampling: 1.01}).Validate())
	assert.Error(t, (&TracingConfig{Enabled: true, Sampling: -0.01}).Validate())
}

func TestMetricsConfig_Validate(t *testing.T) {
	t.Parallel()

	var nilConfig *MetricsConfig
	assert.NoError(t, nilConfig.Validate())

	assert.NoError(t, (&MetricsConfig{Enabled: true}).Validate())
	assert.NoError(t, (&MetricsConfig{Enabled: true, Mode: MetricsModeOTLP}).Validate())
	assert.NoError(t, (&MetricsConfig{Enabled: true, Mode: MetricsModePrometheus}).Validate())
	assert.Error(t, (&MetricsConfig{Enabled: true, Mode: "statsd"}).Validate())
}
