package telemetry

import (
	"context"
	"errors"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/dispatch"
)

// Config controls telemetry setup.
type Config struct {
	// ServiceName and ServiceVersion identify the agent in exported
	// telemetry resources.
	ServiceName    string
	ServiceVersion string

	// OTLPEndpoint enables trace export over OTLP/HTTP when non-empty
	// (e.g. "http://localhost:4318"). Metrics are always collected
	// in-process and served through Snapshot.
	OTLPEndpoint string
}

// Telemetry bundles the runtime's metric and trace pipelines. It
// implements dispatch.Observer so the dispatcher can feed it directly.
type Telemetry struct {
	reader        *sdkmetric.ManualReader
	meterProvider *sdkmetric.MeterProvider
	traceProvider *sdktrace.TracerProvider // nil without OTLP export
	tracer        trace.Tracer
	metrics       *DispatchMetrics
}

// Setup initializes the metric pipeline and, when an OTLP endpoint is
// configured, the trace export pipeline.
func Setup(ctx context.Context, cfg Config) (*Telemetry, error) {
	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	metrics, err := NewDispatchMetrics(meterProvider.Meter("windlass/dispatch"))
	if err != nil {
		_ = meterProvider.Shutdown(ctx)
		return nil, err
	}

	t := &Telemetry{
		reader:        reader,
		meterProvider: meterProvider,
		tracer:        noop.NewTracerProvider().Tracer("windlass/dispatch"),
		metrics:       metrics,
	}

	if cfg.OTLPEndpoint != "" {
		traceProvider, err := newTraceProvider(ctx, cfg.OTLPEndpoint)
		if err != nil {
			_ = meterProvider.Shutdown(ctx)
			return nil, err
		}
		t.traceProvider = traceProvider
		t.tracer = traceProvider.Tracer("windlass/dispatch")
	}

	return t, nil
}

// DispatchStarted opens a dispatch span and returns the span context.
// It implements dispatch.Observer.
func (t *Telemetry) DispatchStarted(ctx context.Context, req dispatch.Request) context.Context {
	return startDispatchSpan(ctx, t.tracer, req.Tool, req.Operation)
}

// DispatchFinished records dispatch metrics and closes the span.
// It implements dispatch.Observer.
func (t *Telemetry) DispatchFinished(ctx context.Context, req dispatch.Request, res dispatch.Result, elapsed time.Duration) {
	t.metrics.RecordDispatch(ctx, req, res, elapsed)
	endDispatchSpan(ctx, res.Status, res.Error)
}

// RecordTransition records a lifecycle state transition.
func (t *Telemetry) RecordTransition(ctx context.Context, from, to windlass.State) {
	t.metrics.RecordTransition(ctx, from, to)
}

// Shutdown flushes and stops both pipelines.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.traceProvider != nil {
		if err := t.traceProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := t.meterProvider.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Ensure interface compliance at compile time.
var _ dispatch.Observer = (*Telemetry)(nil)
