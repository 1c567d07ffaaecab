// Package telemetry installs the global tracer provider that the HTTP
// tracing middleware records spans against.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Setup configures tracing according to the exporter name: "none" leaves
// the no-op global provider in place, "stdout" prints spans, "otlp" ships
// them over OTLP/HTTP to the given endpoint. The returned shutdown func
// flushes pending spans.
func Setup(ctx context.Context, exporter, otlpEndpoint string) (func(context.Context) error, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch exporter {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		exp, err = otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(otlpEndpoint),
			otlptracehttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", exporter)
	}
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "taskmaster-api"),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
