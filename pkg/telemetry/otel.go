// Package telemetry configures OpenTelemetry trace export for the process.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/propagators/autoprop"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/infractl/infractl/pkg/config"
)

// SetupOTelSDK installs the global trace provider and propagators per the
// logging.otel config section. Returns a shutdown function for the provider.
// When tracing is disabled both return values are nil.
func SetupOTelSDK(ctx context.Context, cfg *config.ApplicationConfig) (func(context.Context) error, error) {
	otelCfg := cfg.Logging.OTel
	if !otelCfg.Enabled {
		return nil, nil
	}

	exporter, err := newExporter(ctx, otelCfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.App.Name),
			semconv.ServiceVersionKey.String(cfg.App.Version),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(newSampler(otelCfg.SamplingRate)),
	)

	otel.SetTracerProvider(tp)
	// Honors OTEL_PROPAGATORS, defaults to tracecontext+baggage
	otel.SetTextMapPropagator(autoprop.NewTextMapPropagator())

	return tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg config.OTelConfig) (trace.SpanExporter, error) {
	switch cfg.Protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unsupported otel protocol %q", cfg.Protocol)
	}
}

func newSampler(rate float64) trace.Sampler {
	switch {
	case rate >= 1.0:
		return trace.AlwaysSample()
	case rate <= 0.0:
		return trace.NeverSample()
	default:
		return trace.TraceIDRatioBased(rate)
	}
}
