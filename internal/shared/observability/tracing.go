package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "scopebind"

// Tracer is used by the application layer for run and batch spans. It follows the
// global provider, which is a no-op until InitTracing installs an exporter.
var Tracer trace.Tracer = otel.Tracer(instrumentationName)

// TracingOptions configure InitTracing.
type TracingOptions struct {
	ServiceName string
	Endpoint    string
	Insecure    bool
}

// InitTracing installs an SDK tracer provider exporting over OTLP gRPC. The
// returned function flushes and shuts the provider down.
func InitTracing(ctx context.Context, opts TracingOptions) (func(context.Context) error, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("otlp endpoint is required")
	}
	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if opts.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	name := opts.ServiceName
	if name == "" {
		name = instrumentationName
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	Tracer = provider.Tracer(instrumentationName)

	return func(ctx context.Context) error {
		Tracer = otel.Tracer(instrumentationName)
		return provider.Shutdown(ctx)
	}, nil
}

// NewTestProvider installs an in-process provider with the given span processor.
// It is meant for tests that assert on recorded spans.
func NewTestProvider(processor sdktrace.SpanProcessor) func() {
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(processor))
	prev := Tracer
	Tracer = provider.Tracer(instrumentationName)
	return func() {
		Tracer = prev
		_ = provider.Shutdown(context.Background())
	}
}
