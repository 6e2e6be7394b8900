// Package health exposes the agent's liveness, readiness, and metrics
// endpoints. Every view is derived from lifecycle state and registry
// readiness; nothing here mutates the agent.
package health

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/config"
	"github.com/windlass-dev/windlass/registry"
)

// StateSource is the read-only view of the agent the server probes.
type StateSource interface {
	State() windlass.State
	Name() string
	Version() string
}

// ServerConfig configures the health server.
type ServerConfig struct {
	Source     StateSource
	Registry   *registry.Registry
	Monitoring config.MonitoringConfig

	// Metrics produces the snapshot served at Monitoring.Endpoint.
	// Nil disables the endpoint.
	Metrics func(r *http.Request) (map[string]any, error)

	Logger *slog.Logger
}

// Server renders health state over HTTP.
type Server struct {
	source  StateSource
	reg     *registry.Registry
	cfg     config.MonitoringConfig
	metrics func(r *http.Request) (map[string]any, error)
	logger  *slog.Logger
}

// NewServer creates a health server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Source == nil {
		return nil, errors.New("health: state source is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("health: registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		source:  cfg.Source,
		reg:     cfg.Registry,
		cfg:     cfg.Monitoring,
		metrics: cfg.Metrics,
		logger:  logger,
	}, nil
}

// Handler returns an http.Handler with the configured routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	hc := s.cfg.HealthCheck
	if hc.Enabled {
		mux.HandleFunc("GET "+hc.Endpoint, s.handleHealth)
		mux.HandleFunc("GET "+hc.LiveEndpoint, s.handleLive)
		mux.HandleFunc("GET "+hc.ReadyEndpoint, s.handleReady)
	}
	if s.metrics != nil {
		mux.HandleFunc("GET "+s.cfg.Endpoint, s.handleMetrics)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.source.Version(),
		"name":    s.source.Name(),
	})
}

// handleLive answers "is the process alive", independent of dependency
// health: healthy whenever the agent is past Created and not Stopped.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	if s.source.State().Alive() {
		writeJSON(w, http.StatusOK, map[string]any{"status": "alive"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not alive"})
}

// handleReady reports ready only when the lifecycle state is Ready and
// every registered tool answers IsReady right now. The probe doubles as
// a readiness sweep, so the cached descriptor flags stay current even
// between scheduler runs.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.source.State() == windlass.StateReady && s.reg.RefreshReadiness() == s.reg.Len() {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.metrics(r)
	if err != nil {
		s.logger.Error("metrics snapshot failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "metrics collection failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
