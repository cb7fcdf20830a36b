package server

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jjshanks/http-server"

// tracer owns the OpenTelemetry provider of the server. A disabled tracer
// hands out no-op spans.
type tracer struct {
	tracerProvider *sdktrace.TracerProvider
	enabled        bool
}

// initTracer sets up an OTLP/gRPC exporter for endpoint and installs it as
// the global provider. An empty endpoint disables tracing.
func initTracer(ctx context.Context, serviceName, serviceVersion, endpoint string, insecure bool) (*tracer, error) {
	if endpoint == "" {
		log.Info().Msg("Tracing is disabled (no endpoint configured)")
		return &tracer{enabled: false}, nil
	}

	log.Info().
		Str("service", serviceName).
		Str("version", serviceVersion).
		Str("endpoint", endpoint).
		Bool("insecure", insecure).
		Msg("Initializing OpenTelemetry tracing")

	clientOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &tracer{
		tracerProvider: tp,
		enabled:        true,
	}, nil
}

// shutdown flushes pending spans, waiting at most five seconds.
func (t *tracer) shutdown(ctx context.Context) error {
	if !t.enabled || t.tracerProvider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.Debug().Msg("Shutting down tracer provider")
	if err := t.tracerProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	return nil
}

// startSpan starts a span named operationName with string attributes given
// as key/value pairs. An odd number of keyValues is rejected.
func (t *tracer) startSpan(ctx context.Context, operationName string, keyValues ...string) (context.Context, trace.Span, error) {
	if !t.enabled {
		return ctx, trace.SpanFromContext(ctx), nil
	}

	if len(keyValues)%2 != 0 {
		return ctx, trace.SpanFromContext(ctx), fmt.Errorf("odd number of key-value pairs provided for span attributes in operation '%s'", operationName)
	}

	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i < len(keyValues); i += 2 {
		attrs = append(attrs, attribute.String(keyValues[i], keyValues[i+1]))
	}

	var tr trace.Tracer
	if t.tracerProvider != nil {
		tr = t.tracerProvider.Tracer(tracerName)
	} else {
		tr = otel.Tracer(tracerName)
	}
	ctx, span := tr.Start(ctx, operationName, trace.WithAttributes(attrs...))
	return ctx, span, nil
}
