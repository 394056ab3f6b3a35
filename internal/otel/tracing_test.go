package otel

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportapi/internal/logger"
)

func TestInit_Disabled(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")
	var buf bytes.Buffer

	shutdown, err := Init(context.Background(), logger.NewWithWriter(&buf, "api", "info", time.UTC))

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), `"tracing_enabled":false`)
}

func TestInit_UnsupportedProtocolDegrades(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "carrier-pigeon")
	var buf bytes.Buffer

	shutdown, err := Init(context.Background(), logger.NewWithWriter(&buf, "api", "info", time.UTC))

	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "tracing_init_failed")
}

func TestSettings_NewSampler(t *testing.T) {
	tests := []struct {
		sampler string
		arg     string
		want    string
	}{
		{"always_on", "", "AlwaysOnSampler"},
		{"always_off", "", "AlwaysOffSampler"},
		{"traceidratio", "0.5", "TraceIDRatioBased{0.5}"},
		{"parentbased_traceidratio", "0.25", "ParentBased{root:TraceIDRatioBased{0.25}"},
		{"", "", "ParentBased{root:AlwaysOnSampler"},
	}
	for _, tt := range tests {
		t.Run(tt.sampler, func(t *testing.T) {
			t.Setenv("OTEL_TRACES_SAMPLER", tt.sampler)
			t.Setenv("OTEL_TRACES_SAMPLER_ARG", tt.arg)
			assert.Contains(t, readSettings().newSampler().Description(), tt.want)
		})
	}
}

func TestReadSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, k := range []string{"OTEL_SDK_DISABLED", "OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_PROTOCOL",
			"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_TRACES_SAMPLER_ARG"} {
			t.Setenv(k, "")
		}

		s := readSettings()
		assert.False(t, s.disabled)
		assert.Equal(t, defaultServiceName, s.serviceName)
		assert.Equal(t, "grpc", s.protocol)
		assert.Empty(t, s.endpoint)
		assert.Equal(t, 1.0, s.samplerArg)
	})

	t.Run("traces endpoint wins over the generic one", func(t *testing.T) {
		t.Setenv("OTEL_SERVICE_NAME", "reports-worker")
		t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http/protobuf")
		t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
		t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://traces:4318")
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", "not-a-number")

		s := readSettings()
		assert.Equal(t, "reports-worker", s.serviceName)
		assert.Equal(t, "http/protobuf", s.protocol)
		assert.Equal(t, "http://traces:4318", s.endpoint)
		assert.Equal(t, 1.0, s.samplerArg)
	})
}
