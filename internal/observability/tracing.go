package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Init initializes the global trace provider for one jobplane role
// ("jobplane-master" or "jobplane-worker"), tagging the resource with
// service.namespace=jobplane so a trace backend groups master and
// worker spans from the same deployment together. It returns a
// shutdown function that should be called on app exit.
func Init(ctx context.Context, serviceName, collectorAddr string) (func(context.Context) error, error) {
	exporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithEndpoint(collectorAddr),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceNamespace("jobplane"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}),
	)

	return tp.Shutdown, nil
}

// ServiceSpanAttributes tags a span with the runner ServiceID it
// belongs to and, once assigned, the worker node handling it. Both
// runner.WithService and dispatchClosure spans use this so the
// attribute keys can't drift between the two call sites.
func ServiceSpanAttributes(serviceID, worker string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("jobplane.service_id", serviceID)}
	if worker != "" {
		attrs = append(attrs, attribute.String("jobplane.worker_node", worker))
	}
	return attrs
}

// StartDispatchSpan starts a client-kind span for one closure dispatch,
// tagged with the service id, the worker it was sent to, and the
// closure being invoked.
func StartDispatchSpan(ctx context.Context, tracer trace.Tracer, serviceID, worker, closureID string) (context.Context, trace.Span) {
	attrs := append(ServiceSpanAttributes(serviceID, worker), attribute.String("jobplane.closure_id", closureID))
	return tracer.Start(ctx, "runner.dispatchClosure", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}
