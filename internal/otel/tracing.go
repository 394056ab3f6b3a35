// Package otel configures OpenTelemetry tracing for reportapi.
package otel

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"reportapi/internal/logger"
)

const defaultServiceName = "reportapi"

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// settings is the subset of the standard OTEL_* environment this package reads.
type settings struct {
	disabled    bool
	serviceName string
	protocol    string
	endpoint    string
	sampler     string
	samplerArg  float64
}

func readSettings() settings {
	s := settings{
		serviceName: defaultServiceName,
		protocol:    "grpc",
		sampler:     os.Getenv("OTEL_TRACES_SAMPLER"),
		samplerArg:  1.0,
	}
	s.disabled, _ = strconv.ParseBool(os.Getenv("OTEL_SDK_DISABLED"))
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		s.serviceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"); v != "" {
		s.protocol = v
	}
	s.endpoint = os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT")
	if s.endpoint == "" {
		s.endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if v, err := strconv.ParseFloat(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 64); err == nil {
		s.samplerArg = v
	}
	return s
}

// Init installs a global tracer provider exporting over OTLP (grpc or
// http/protobuf). The W3C propagator is always installed, so trace context
// still flows through the service when export is disabled or unavailable.
func Init(ctx context.Context, log *logger.Logger) (Shutdown, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	s := readSettings()
	if s.disabled {
		log.Info().Bool("tracing_enabled", false).Msg("tracing_configured")
		return noopShutdown, nil
	}

	exporter, err := newExporter(ctx, s.protocol)
	if err != nil {
		log.Error().Err(err).Str("otlp_protocol", s.protocol).Msg("tracing_init_failed")
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(s.serviceName)),
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	sampler := s.newSampler()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp)

	log.Info().
		Bool("tracing_enabled", true).
		Str("service", s.serviceName).
		Str("otlp_protocol", s.protocol).
		Str("otlp_endpoint", s.endpoint).
		Str("sampler", sampler.Description()).
		Msg("tracing_configured")

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, protocol string) (*otlptrace.Exporter, error) {
	switch protocol {
	case "grpc":
		return otlptracegrpc.New(ctx)
	case "http/protobuf":
		return otlptracehttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol: %s", protocol)
	}
}

func (s settings) newSampler() sdktrace.Sampler {
	switch s.sampler {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(s.samplerArg)
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.samplerArg))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}
