// Package agent implements the lifecycle controller that owns the
// runtime components: memory, the tool registry, the dispatcher, and
// the monitoring HTTP surface. The controller is a small state machine
//
//	Created -> Initializing -> Ready | Degraded -> ShuttingDown -> Stopped
//
// and every component is started in Setup and torn down in Cleanup in
// reverse order.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/windlass-dev/windlass"
	"github.com/windlass-dev/windlass/config"
	"github.com/windlass-dev/windlass/dispatch"
	"github.com/windlass-dev/windlass/health"
	"github.com/windlass-dev/windlass/memory"
	"github.com/windlass-dev/windlass/registry"
	"github.com/windlass-dev/windlass/telemetry"
	"github.com/windlass-dev/windlass/tools"
)

const shutdownTimeout = 30 * time.Second

// ErrStopped is returned for operations against an agent that has
// finished its lifecycle.
var ErrStopped = errors.New("agent: agent is stopped")

// ToolSource supplies the tools registered during Setup. Implemented by
// tools.Catalog; a nil source registers nothing.
type ToolSource interface {
	Tools(ctx context.Context) ([]tools.NamedTool, error)
}

// Config configures an Agent.
type Config struct {
	Snapshot config.Snapshot

	// Source supplies tools at setup time. Optional.
	Source ToolSource

	// Telemetry observes dispatches and state transitions and backs the
	// metrics endpoint. Optional.
	Telemetry *telemetry.Telemetry

	Logger *slog.Logger
}

// Agent is the lifecycle controller.
type Agent struct {
	cfg    config.Snapshot
	source ToolSource
	tel    *telemetry.Telemetry
	logger *slog.Logger

	reg  *registry.Registry
	disp *dispatch.Dispatcher

	mu        sync.RWMutex
	state     windlass.State
	store     memory.Store
	httpSrv   *http.Server
	httpAddr  string
	scheduler *health.Scheduler
}

// New creates an agent in the Created state. No component is started
// until Setup.
func New(cfg Config) (*Agent, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := registry.New()

	var observer dispatch.Observer
	if cfg.Telemetry != nil {
		observer = cfg.Telemetry
	}
	disp, err := dispatch.New(dispatch.Config{
		Registry: reg,
		Timeout:  time.Duration(cfg.Snapshot.Tools.TimeoutSeconds) * time.Second,
		Observer: observer,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	return &Agent{
		cfg:    cfg.Snapshot,
		source: cfg.Source,
		tel:    cfg.Telemetry,
		logger: logger,
		reg:    reg,
		disp:   disp,
		state:  windlass.StateCreated,
	}, nil
}

// Name returns the configured agent name.
func (a *Agent) Name() string { return a.cfg.Name }

// Version returns the configured agent version.
func (a *Agent) Version() string { return a.cfg.Version }

// State returns the current lifecycle state.
func (a *Agent) State() windlass.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Registry exposes the tool registry for inspection.
func (a *Agent) Registry() *registry.Registry { return a.reg }

// MonitoringAddr returns the bound monitoring listener address, or ""
// when the surface is not serving.
func (a *Agent) MonitoringAddr() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.httpAddr
}

// setState must be called with a.mu held.
func (a *Agent) setState(ctx context.Context, to windlass.State) {
	from := a.state
	if from == to {
		return
	}
	a.state = to
	a.logger.Info("lifecycle transition", "from", from.String(), "to", to.String())
	if a.tel != nil {
		a.tel.RecordTransition(ctx, from, to)
	}
}

// Setup initializes memory, registers tools, and starts the monitoring
// surface. It is idempotent: calling it on a Ready or Degraded agent is
// a no-op, and calling it after shutdown began is an error. A failure
// to bind the monitoring listener degrades the agent instead of failing
// setup; memory or tool failures abort it and return the agent to
// Created so a corrected environment can retry.
func (a *Agent) Setup(ctx context.Context) error {
	a.mu.Lock()
	switch a.state {
	case windlass.StateReady, windlass.StateDegraded:
		a.mu.Unlock()
		return nil
	case windlass.StateShuttingDown, windlass.StateStopped:
		a.mu.Unlock()
		return ErrStopped
	case windlass.StateInitializing:
		a.mu.Unlock()
		return errors.New("agent: setup already in progress")
	}
	a.setState(ctx, windlass.StateInitializing)
	a.mu.Unlock()

	// Components are built without the state lock held so concurrent
	// state reads (health handlers, Process) observe Initializing
	// instead of blocking for the whole of setup. The Initializing
	// guard above keeps Setup itself single-flight.
	store, err := a.buildStore()
	if err != nil {
		a.transition(ctx, windlass.StateCreated)
		return fmt.Errorf("agent: memory setup: %w", err)
	}
	a.mu.Lock()
	a.store = store
	a.mu.Unlock()

	if err := a.registerTools(ctx, store); err != nil {
		// Roll back partial registrations so a corrected environment
		// can run Setup again without duplicate-tool failures.
		if rbErr := a.reg.Reset(ctx); rbErr != nil {
			a.logger.Warn("tool rollback cleanup failed", "error", rbErr)
		}
		a.mu.Lock()
		_ = a.closeStoreLocked()
		a.setState(ctx, windlass.StateCreated)
		a.mu.Unlock()
		return fmt.Errorf("agent: tool setup: %w", err)
	}

	var srv *http.Server
	var addr string
	var scheduler *health.Scheduler
	degraded := false
	if a.cfg.Monitoring.Enabled {
		srv, addr, scheduler, err = a.startMonitoring(ctx)
		if err != nil {
			a.logger.Warn("monitoring surface unavailable, continuing degraded", "error", err)
			degraded = true
		}
	}

	a.mu.Lock()
	if a.state != windlass.StateInitializing {
		// Shutdown began while components were starting; hand nothing
		// to Cleanup and stop what this call started.
		a.mu.Unlock()
		stopMonitoring(ctx, srv, scheduler)
		return ErrStopped
	}
	a.httpSrv = srv
	a.httpAddr = addr
	a.scheduler = scheduler
	if degraded {
		a.setState(ctx, windlass.StateDegraded)
	} else {
		a.setState(ctx, windlass.StateReady)
	}
	state := a.state
	a.mu.Unlock()

	a.logger.Info("agent ready",
		"name", a.cfg.Name,
		"version", a.cfg.Version,
		"tools", a.reg.Len(),
		"state", state.String(),
	)
	return nil
}

// transition acquires the state lock for a single state change.
func (a *Agent) transition(ctx context.Context, to windlass.State) {
	a.mu.Lock()
	a.setState(ctx, to)
	a.mu.Unlock()
}

func (a *Agent) buildStore() (memory.Store, error) {
	if !a.cfg.Memory.Enabled {
		return nil, nil
	}
	if a.cfg.Memory.Persistence {
		return memory.NewSQLiteStore(memory.SQLiteStoreConfig{
			Path:       a.cfg.Memory.Path,
			MaxEntries: a.cfg.Memory.MaxEntries,
		})
	}
	return memory.NewMemStore(a.cfg.Memory.MaxEntries), nil
}

func (a *Agent) registerTools(ctx context.Context, store memory.Store) error {
	source := a.source
	if source == nil {
		source = tools.NewCatalog(a.cfg, store)
	}
	named, err := source.Tools(ctx)
	if err != nil {
		return err
	}
	for _, nt := range named {
		if err := a.reg.Register(nt.Name, nt.Tool); err != nil {
			return err
		}
		a.logger.Debug("tool registered", "tool", nt.Name)
	}
	return nil
}

// startMonitoring builds the health server, binds its listener, and
// starts the readiness scheduler. On error it tears down whatever it
// started and returns nothing for the caller to own.
func (a *Agent) startMonitoring(ctx context.Context) (*http.Server, string, *health.Scheduler, error) {
	var metricsFn func(r *http.Request) (map[string]any, error)
	if a.tel != nil {
		metricsFn = func(r *http.Request) (map[string]any, error) {
			return a.tel.Snapshot(r.Context())
		}
	}

	healthServer, err := health.NewServer(health.ServerConfig{
		Source:     a,
		Registry:   a.reg,
		Monitoring: a.cfg.Monitoring,
		Metrics:    metricsFn,
		Logger:     a.logger,
	})
	if err != nil {
		return nil, "", nil, err
	}

	addr := net.JoinHostPort(a.cfg.Monitoring.Host, fmt.Sprintf("%d", a.cfg.Monitoring.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", nil, fmt.Errorf("bind %s: %w", addr, err)
	}

	srv := &http.Server{
		Addr:         addr,
		Handler:      withCORS(healthServer.Handler(), a.cfg.Security),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("monitoring server failed", "error", err)
		}
	}()
	bound := ln.Addr().String()
	a.logger.Info("monitoring surface listening", "addr", bound)

	var scheduler *health.Scheduler
	if a.cfg.Monitoring.HealthCheck.Enabled {
		scheduler, err = health.NewScheduler(health.SchedulerConfig{
			Registry: a.reg,
			Schedule: a.cfg.Monitoring.HealthCheck.Schedule,
			Logger:   a.logger,
		})
		if err == nil {
			err = scheduler.Start(ctx)
		}
		if err != nil {
			stopMonitoring(ctx, srv, nil)
			return nil, "", nil, err
		}
	}
	return srv, bound, scheduler, nil
}

// stopMonitoring stops the scheduler and drains the HTTP server. It must
// never run while the agent state lock is held: draining includes
// in-flight health probes, and those read lifecycle state.
func stopMonitoring(ctx context.Context, srv *http.Server, scheduler *health.Scheduler) error {
	var errs []error
	if scheduler != nil {
		if err := scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop readiness scheduler: %w", err))
		}
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown monitoring server: %w", err))
		}
		cancel()
	}
	return errors.Join(errs...)
}

// Process dispatches one request. An agent still in Created is set up
// implicitly; an agent past shutdown reports an error envelope instead
// of executing anything.
func (a *Agent) Process(ctx context.Context, req dispatch.Request) dispatch.Result {
	switch a.State() {
	case windlass.StateShuttingDown, windlass.StateStopped:
		return dispatch.Result{
			Status: dispatch.StatusError,
			Error:  ErrStopped.Error(),
		}
	case windlass.StateCreated:
		if err := a.Setup(ctx); err != nil {
			return dispatch.Result{
				Status: dispatch.StatusError,
				Error:  fmt.Sprintf("agent setup failed: %s", err),
			}
		}
	}
	return a.disp.Dispatch(ctx, req)
}

// Cleanup tears components down in reverse setup order. It is
// idempotent: a Stopped agent stays stopped, and errors from individual
// components are joined rather than aborting the teardown.
func (a *Agent) Cleanup(ctx context.Context) error {
	a.mu.Lock()
	if a.state == windlass.StateStopped {
		a.mu.Unlock()
		return nil
	}
	a.setState(ctx, windlass.StateShuttingDown)
	srv := a.httpSrv
	scheduler := a.scheduler
	a.httpSrv = nil
	a.httpAddr = ""
	a.scheduler = nil
	a.mu.Unlock()

	// The drain runs unlocked: probes still in flight read lifecycle
	// state and must be able to finish.
	var errs []error
	if err := stopMonitoring(ctx, srv, scheduler); err != nil {
		errs = append(errs, err)
	}

	if err := a.reg.CleanupAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cleanup tools: %w", err))
	}

	a.mu.Lock()
	if err := a.closeStoreLocked(); err != nil {
		errs = append(errs, fmt.Errorf("close memory store: %w", err))
	}
	a.setState(ctx, windlass.StateStopped)
	a.mu.Unlock()

	a.logger.Info("agent stopped", "name", a.cfg.Name)
	return errors.Join(errs...)
}

func (a *Agent) closeStoreLocked() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// Run sets the agent up and blocks until the context is canceled or the
// process receives an interrupt or termination signal, then cleans up.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}

	ctx, stop := notifyShutdown(ctx)
	defer stop()

	<-ctx.Done()
	a.logger.Info("shutdown signal received")

	cleanupCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.Cleanup(cleanupCtx)
}

var _ health.StateSource = (*Agent)(nil)

func withCORS(next http.Handler, sec config.SecurityConfig) http.Handler {
	cors := sec.CORS
	if !cors.Enabled {
		return next
	}

	origin := "*"
	if len(sec.AllowedOrigins) == 1 && sec.AllowedOrigins[0] != "*" {
		origin = sec.AllowedOrigins[0]
	}
	methods := strings.Join(cors.AllowedMethods, ", ")
	if methods == "" {
		methods = "GET, OPTIONS"
	}
	headers := strings.Join(cors.AllowedHeaders, ", ")
	if headers == "" {
		headers = "Content-Type, Authorization"
	}
	exposed := strings.Join(cors.ExposedHeaders, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.Header().Set("Access-Control-Allow-Headers", headers)
		if exposed != "" {
			w.Header().Set("Access-Control-Expose-Headers", exposed)
		}
		if cors.AllowCredentials {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if cors.MaxAge > 0 {
			w.Header().Set("Access-Control-Max-Age", fmt.Sprintf("%d", cors.MaxAge))
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
