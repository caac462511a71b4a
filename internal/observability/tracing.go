package observability

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ideaspark/hub/internal/config"
)

// Trace exporters accepted in OTEL_TRACES_EXPORTER.
const (
	TracesExporterOTLP   = "otlp"
	TracesExporterStdout = "stdout"
)

// Standard OTel sampler variables, read directly rather than through config.
const (
	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"
)

// defaultTraceIDRatio applies when a ratio sampler has a missing or out-of-range argument.
const defaultTraceIDRatio = 1.0

// NewTracerProvider creates a TracerProvider for the configured exporter. Spans cover HTTP
// requests (otelhttp) and the River embedding jobs. An empty or unknown exporter disables
// tracing and returns (nil, nil).
func NewTracerProvider(cfg *config.Config) (*sdktrace.TracerProvider, error) {
	if cfg == nil {
		//nolint:nilnil // intentional: tracing disabled, caller checks for nil
		return nil, nil
	}

	exp, err := newSpanExporter(context.Background(), cfg.OtelTracesExporter)
	if err != nil {
		return nil, err
	}

	if exp == nil {
		//nolint:nilnil // intentional: tracing disabled, caller checks for nil
		return nil, nil
	}

	res, err := newResource()
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(samplerFromEnv(os.Getenv(envTracesSampler), os.Getenv(envTracesSamplerArg))),
		sdktrace.WithBatcher(exp),
	), nil
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider. Safe to call with nil.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}

// newSpanExporter returns nil without error for an empty or unknown exporter name.
// The OTLP exporter reads OTEL_EXPORTER_OTLP_ENDPOINT and friends from the environment.
func newSpanExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	switch name {
	case TracesExporterOTLP:
		exp, err := otlptracehttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("create OTLP HTTP trace exporter: %w", err)
		}

		return exp, nil
	case TracesExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout trace exporter: %w", err)
		}

		return exp, nil
	default:
		return nil, nil
	}
}

// samplerFromEnv maps OTEL_TRACES_SAMPLER and its argument to a Sampler. Unknown or empty
// names fall back to parentbased_always_on, the SDK default.
func samplerFromEnv(name, arg string) sdktrace.Sampler {
	switch name {
	case "always_on":
		return sdktrace.AlwaysSample()
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.TraceIDRatioBased(parseTraceIDRatio(arg))
	case "parentbased_traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(parseTraceIDRatio(arg)))
	case "parentbased_always_off":
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

func parseTraceIDRatio(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 1 {
		return defaultTraceIDRatio
	}

	return f
}
