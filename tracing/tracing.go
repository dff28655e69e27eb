// Package tracing installs the OpenTelemetry tracer provider used by the
// orchestrator spans.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Exporter names.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
)

// Config selects the span exporter.
type Config struct {
	Exporter       string
	ServiceName    string
	ServiceVersion string
	// Writer receives stdout exporter output; defaults to os.Stdout.
	Writer io.Writer
	// Global also installs the provider with otel.SetTracerProvider.
	Global bool
}

// ShutdownFunc flushes and stops the provider.
type ShutdownFunc func(ctx context.Context) error

// Setup builds a tracer provider for cfg. The "none" exporter (or an empty
// one) yields a no-op provider.
func Setup(ctx context.Context, cfg Config) (trace.TracerProvider, ShutdownFunc, error) {
	var (
		tp       trace.TracerProvider
		shutdown ShutdownFunc = func(context.Context) error { return nil }
	)

	switch cfg.Exporter {
	case "", ExporterNone:
		tp = noop.NewTracerProvider()
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("create stdout exporter: %w", err)
		}

		name := cfg.ServiceName
		if name == "" {
			name = "docmesh"
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			attribute.String("service.name", name),
			attribute.String("service.version", cfg.ServiceVersion),
		))
		if err != nil {
			return nil, nil, fmt.Errorf("create resource: %w", err)
		}

		sdk := sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		)
		tp, shutdown = sdk, sdk.Shutdown
	default:
		return nil, nil, fmt.Errorf("unknown tracing exporter %q", cfg.Exporter)
	}

	if cfg.Global {
		otel.SetTracerProvider(tp)
	}
	return tp, shutdown, nil
}
