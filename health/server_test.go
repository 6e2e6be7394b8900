package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/config"
	"github.com/windlass-dev/windlass/registry"
)

type stubSource struct {
	mu    sync.Mutex
	state windlass.State
}

func (s *stubSource) State() windlass.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stubSource) setState(state windlass.State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *stubSource) Name() string    { return "test-agent" }
func (s *stubSource) Version() string { return "1.2.3" }

type stubTool struct {
	mu    sync.Mutex
	ready bool
}

func (t *stubTool) Name() string { return "stub" }

func (t *stubTool) Execute(ctx context.Context, operation string, params map[string]any) (any, error) {
	return nil, windlass.ErrUnsupportedOperation(operation)
}

func (t *stubTool) IsReady() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ready
}

func (t *stubTool) setReady(ready bool) {
	t.mu.Lock()
	t.ready = ready
	t.mu.Unlock()
}

func (t *stubTool) Cleanup(ctx context.Context) error { return nil }

func newTestServer(t *testing.T, source *stubSource, reg *registry.Registry, metrics func(r *http.Request) (map[string]any, error)) *httptest.Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Source:     source,
		Registry:   reg,
		Monitoring: config.Default().Monitoring,
		Metrics:    metrics,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding %s response: %v", url, err)
	}
	return resp.StatusCode, body
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, &stubSource{state: windlass.StateReady}, registry.New(), nil)

	status, body := getJSON(t, ts.URL+"/health")
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["name"] != "test-agent" || body["version"] != "1.2.3" {
		t.Errorf("identity = %v/%v, want test-agent/1.2.3", body["name"], body["version"])
	}
}

func TestServer_Liveness(t *testing.T) {
	source := &stubSource{state: windlass.StateReady}
	ts := newTestServer(t, source, registry.New(), nil)

	status, body := getJSON(t, ts.URL+"/health/live")
	if status != http.StatusOK || body["status"] != "alive" {
		t.Errorf("live = %d %v, want 200 alive", status, body)
	}

	// Liveness holds through shutdown; only Created and Stopped fail it.
	source.setState(windlass.StateShuttingDown)
	if status, _ := getJSON(t, ts.URL+"/health/live"); status != http.StatusOK {
		t.Errorf("live during shutdown = %d, want 200", status)
	}

	source.setState(windlass.StateStopped)
	status, body = getJSON(t, ts.URL+"/health/live")
	if status != http.StatusServiceUnavailable || body["status"] != "not alive" {
		t.Errorf("live after stop = %d %v, want 503 not alive", status, body)
	}
}

func TestServer_Readiness(t *testing.T) {
	source := &stubSource{state: windlass.StateReady}
	reg := registry.New()
	tool := &stubTool{ready: true}
	if err := reg.Register("stub", tool); err != nil {
		t.Fatalf("Register: %v", err)
	}
	ts := newTestServer(t, source, reg, nil)

	status, body := getJSON(t, ts.URL+"/health/ready")
	if status != http.StatusOK || body["status"] != "ready" {
		t.Errorf("ready = %d %v, want 200 ready", status, body)
	}

	// A tool going unready flips readiness on the very next probe; the
	// endpoint asks every tool directly instead of waiting for a
	// scheduler sweep.
	tool.setReady(false)
	status, body = getJSON(t, ts.URL+"/health/ready")
	if status != http.StatusServiceUnavailable || body["status"] != "not ready" {
		t.Errorf("ready with unready tool = %d %v, want 503 not ready", status, body)
	}
	// The probe also refreshes the cached descriptor flags.
	if reg.AllReady() {
		t.Error("probe should have recorded the tool as unready")
	}

	tool.setReady(true)
	if status, _ := getJSON(t, ts.URL+"/health/ready"); status != http.StatusOK {
		t.Errorf("ready after recovery = %d, want 200", status)
	}

	// Degraded agents are alive but never ready.
	source.setState(windlass.StateDegraded)
	if status, _ := getJSON(t, ts.URL+"/health/ready"); status != http.StatusServiceUnavailable {
		t.Errorf("ready while degraded = %d, want 503", status)
	}
}

func TestServer_ReadinessEmptyRegistry(t *testing.T) {
	ts := newTestServer(t, &stubSource{state: windlass.StateReady}, registry.New(), nil)
	if status, _ := getJSON(t, ts.URL+"/health/ready"); status != http.StatusOK {
		t.Errorf("ready with no tools = %d, want 200", status)
	}
}

func TestServer_Metrics(t *testing.T) {
	metrics := func(r *http.Request) (map[string]any, error) {
		return map[string]any{"metrics": []any{map[string]any{"name": "windlass.dispatch.requests"}}}, nil
	}
	ts := newTestServer(t, &stubSource{state: windlass.StateReady}, registry.New(), metrics)

	status, body := getJSON(t, ts.URL+"/metrics")
	if status != http.StatusOK {
		t.Errorf("metrics = %d, want 200", status)
	}
	if _, ok := body["metrics"]; !ok {
		t.Errorf("body = %v, want a metrics key", body)
	}
}

func TestServer_MetricsDisabledWithoutSource(t *testing.T) {
	ts := newTestServer(t, &stubSource{state: windlass.StateReady}, registry.New(), nil)
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("metrics without a source = %d, want 404", resp.StatusCode)
	}
}

func TestServer_GETOnly(t *testing.T) {
	ts := newTestServer(t, &stubSource{state: windlass.StateReady}, registry.New(), nil)
	resp, err := http.Post(ts.URL+"/health", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /health = %d, want 405", resp.StatusCode)
	}
}
