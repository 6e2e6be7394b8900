// Package telemetry provides OpenTelemetry integration for the Windlass
// runtime: dispatch counters and histograms, lifecycle transition
// counters, per-dispatch tracing, and an optional OTLP/HTTP trace
// exporter. The meter provider is backed by a manual reader so the
// health server can serve point-in-time metric snapshots.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/dispatch"
)

// DispatchMetrics records counters and histograms for tool dispatches
// and agent lifecycle transitions.
type DispatchMetrics struct {
	dispatches  metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
	transitions metric.Int64Counter
}

// NewDispatchMetrics creates instruments on the given meter.
func NewDispatchMetrics(meter metric.Meter) (*DispatchMetrics, error) {
	dispatches, err := meter.Int64Counter("windlass.dispatch.requests",
		metric.WithDescription("Number of dispatch requests"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("windlass.dispatch.failures",
		metric.WithDescription("Number of dispatch requests that returned an error envelope"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("windlass.dispatch.duration",
		metric.WithDescription("Duration of dispatch calls in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("windlass.agent.transitions",
		metric.WithDescription("Number of agent lifecycle state transitions"),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchMetrics{
		dispatches:  dispatches,
		failures:    failures,
		duration:    duration,
		transitions: transitions,
	}, nil
}

// RecordDispatch records one completed dispatch.
func (m *DispatchMetrics) RecordDispatch(ctx context.Context, req dispatch.Request, res dispatch.Result, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", req.Tool),
		attribute.String("operation", req.Operation),
		attribute.String("status", res.Status),
	)
	m.dispatches.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	if !res.OK() {
		m.failures.Add(ctx, 1, attrs)
	}
}

// RecordTransition records one lifecycle state transition.
func (m *DispatchMetrics) RecordTransition(ctx context.Context, from, to windlass.State) {
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}
