package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// newTraceProvider builds a tracer provider exporting spans over
// OTLP/HTTP to the given endpoint URL.
func newTraceProvider(ctx context.Context, endpointURL string) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(endpointURL),
	}
	if strings.HasPrefix(endpointURL, "http://") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: creating OTLP trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	), nil
}

// startDispatchSpan opens a span for one dispatch call.
func startDispatchSpan(ctx context.Context, tracer trace.Tracer, tool, operation string) context.Context {
	ctx, _ = tracer.Start(ctx, "dispatch:"+tool,
		trace.WithAttributes(
			attribute.String("windlass.tool", tool),
			attribute.String("windlass.operation", operation),
		),
	)
	return ctx
}

// endDispatchSpan closes the span opened by startDispatchSpan, recording
// error status for error envelopes.
func endDispatchSpan(ctx context.Context, status, message string) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if status == "error" {
		span.SetStatus(codes.Error, message)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
