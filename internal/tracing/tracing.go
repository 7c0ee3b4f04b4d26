// Package tracing bootstraps the OpenTelemetry tracer provider. When
// telemetry is disabled the global provider stays a no-op and the pipeline's
// spans cost nothing.
package tracing

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/musafirlabs/wahapipe/internal/config"
)

// Init installs the OTLP/HTTP trace exporter per config and returns a
// shutdown func. Returns a no-op shutdown when telemetry is disabled.
func Init(ctx context.Context, cfg config.TelemetryConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("wahapipe"),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	slog.Info("telemetry enabled", "endpoint", cfg.Endpoint)
	return provider.Shutdown, nil
}
