package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

type TracingOptions struct {
	Exporter    string
	Endpoint    string // host:port for otlp
	ServiceName string
	// Writer receives spans for the stdout exporter; defaults to os.Stdout.
	Writer io.Writer
}

// SetupTracing installs a global tracer provider. With ExporterNone the
// otel no-op provider is left in place. The returned func flushes and
// stops the provider.
func SetupTracing(ctx context.Context, opts TracingOptions) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	var exp sdktrace.SpanExporter
	switch strings.ToLower(opts.Exporter) {
	case "", ExporterNone:
		return noop, nil
	case ExporterStdout:
		w := opts.Writer
		if w == nil {
			w = os.Stdout
		}
		e, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return noop, fmt.Errorf("stdout exporter: %w", err)
		}
		exp = e
	case ExporterOTLP:
		var httpOpts []otlptracehttp.Option
		if opts.Endpoint != "" {
			httpOpts = append(httpOpts, otlptracehttp.WithEndpoint(opts.Endpoint), otlptracehttp.WithInsecure())
		}
		e, err := otlptracehttp.New(ctx, httpOpts...)
		if err != nil {
			return noop, fmt.Errorf("otlp exporter: %w", err)
		}
		exp = e
	default:
		return noop, fmt.Errorf("unknown tracing exporter %q", opts.Exporter)
	}

	name := opts.ServiceName
	if name == "" {
		name = "zentask"
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
