package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/dispatch"
)

func newTestTelemetry(t *testing.T) *Telemetry {
	t.Helper()
	tel, err := Setup(context.Background(), Config{
		ServiceName:    "test-agent",
		ServiceVersion: "0.0.1",
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = tel.Shutdown(ctx)
	})
	return tel
}

func metricNames(t *testing.T, tel *Telemetry) map[string]bool {
	t.Helper()
	snapshot, err := tel.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	metrics, ok := snapshot["metrics"].([]map[string]any)
	if !ok {
		t.Fatalf("snapshot metrics have type %T", snapshot["metrics"])
	}
	names := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		name, _ := m["name"].(string)
		names[name] = true
	}
	return names
}

func TestTelemetry_RecordsDispatches(t *testing.T) {
	tel := newTestTelemetry(t)
	ctx := context.Background()

	req := dispatch.Request{Tool: "greeter", Operation: "greet"}
	ctx = tel.DispatchStarted(ctx, req)
	tel.DispatchFinished(ctx, req, dispatch.Result{Status: dispatch.StatusSuccess}, 5*time.Millisecond)

	names := metricNames(t, tel)
	for _, want := range []string{"windlass.dispatch.requests", "windlass.dispatch.duration"} {
		if !names[want] {
			t.Errorf("snapshot missing metric %q (have %v)", want, names)
		}
	}
	if names["windlass.dispatch.failures"] {
		t.Error("failures counter should not appear before any failure")
	}
}

func TestTelemetry_RecordsFailures(t *testing.T) {
	tel := newTestTelemetry(t)
	ctx := context.Background()

	req := dispatch.Request{Tool: "greeter", Operation: "explode"}
	ctx = tel.DispatchStarted(ctx, req)
	tel.DispatchFinished(ctx, req, dispatch.Result{
		Status: dispatch.StatusError,
		Error:  "boom",
	}, time.Millisecond)

	names := metricNames(t, tel)
	if !names["windlass.dispatch.failures"] {
		t.Errorf("snapshot missing failure counter (have %v)", names)
	}
}

func TestTelemetry_RecordsTransitions(t *testing.T) {
	tel := newTestTelemetry(t)
	tel.RecordTransition(context.Background(), windlass.StateCreated, windlass.StateInitializing)
	tel.RecordTransition(context.Background(), windlass.StateInitializing, windlass.StateReady)

	names := metricNames(t, tel)
	if !names["windlass.agent.transitions"] {
		t.Errorf("snapshot missing transition counter (have %v)", names)
	}
}

func TestTelemetry_SnapshotWithoutActivity(t *testing.T) {
	tel := newTestTelemetry(t)
	snapshot, err := tel.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if _, ok := snapshot["metrics"]; !ok {
		t.Error("snapshot should always carry a metrics key")
	}
}

func TestDispatchSpans_RecordStatus(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	ctx := startDispatchSpan(context.Background(), tracer, "greeter", "greet")
	endDispatchSpan(ctx, dispatch.StatusSuccess, "")

	ctx = startDispatchSpan(context.Background(), tracer, "greeter", "explode")
	endDispatchSpan(ctx, dispatch.StatusError, "boom")

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if got := spans[0].Name(); got != "dispatch:greeter" {
		t.Errorf("span name = %q, want %q", got, "dispatch:greeter")
	}
	if got := spans[0].Status().Code; got != codes.Ok {
		t.Errorf("success span status = %v, want %v", got, codes.Ok)
	}
	if got := spans[1].Status().Code; got != codes.Error {
		t.Errorf("error span status = %v, want %v", got, codes.Error)
	}
	if got := spans[1].Status().Description; got != "boom" {
		t.Errorf("error span description = %q, want %q", got, "boom")
	}
}
