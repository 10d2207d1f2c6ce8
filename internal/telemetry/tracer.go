// Package telemetry wires structured logging and OpenTelemetry tracing.
//
// Call SetupTracer once at the top of the command, defer the returned
// shutdown function, and every span created in the process is exported.
//
//	shutdown, err := telemetry.SetupTracer(ctx, "notifyd", telemetry.TracerConfig{Exporter: "stdout"})
//	if err != nil { ... }
//	defer shutdown(context.Background())
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc must be called before the process exits to flush any
// buffered spans.
type ShutdownFunc func(ctx context.Context) error

// TracerConfig selects the span exporter. Exporter is "stdout" or "none".
type TracerConfig struct {
	Exporter    string `mapstructure:"exporter"`
	Environment string `mapstructure:"environment"`
	// Writer receives stdout spans; nil means os.Stdout.
	Writer io.Writer `mapstructure:"-"`
}

// SetupTracer initialises the global TracerProvider and the W3C propagators
// for serviceName. With the "none" exporter spans are still created, so trace
// ids reach logs and attempt records, but nothing is exported.
func SetupTracer(ctx context.Context, serviceName string, cfg TracerConfig) (ShutdownFunc, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"",
			semconv.ServiceName(serviceName),
			semconv.DeploymentEnvironment(getEnv("OTEL_RESOURCE_ATTRIBUTES_ENV", orDefault(cfg.Environment, "local"))),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: failed to build resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}

	switch cfg.Exporter {
	case "", "none":
	case "stdout":
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("telemetry: failed to create stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	default:
		return nil, fmt.Errorf("telemetry: unknown trace exporter %q", cfg.Exporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: error shutting down TracerProvider: %w", err)
		}
		return nil
	}
	return shutdown, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
