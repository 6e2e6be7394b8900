package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/windlass-dev/windlass/registry"
)

const defaultProbeInterval = 30 * time.Second

// parseSchedule compiles a five-field cron expression. Probe times are
// always evaluated in UTC, so the TZ= and CRON_TZ= location prefixes
// robfig/cron supports are rejected rather than silently honored.
func parseSchedule(expr string) (cron.Schedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, errors.New("health: schedule is empty")
	}
	if strings.Contains(strings.ToUpper(expr), "TZ=") {
		return nil, errors.New("health: schedule must not carry a timezone prefix (probes run in UTC)")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("health: invalid schedule %q: %w", expr, err)
	}
	return sched, nil
}

// ProbeEvent captures one readiness sweep over the registry.
type ProbeEvent struct {
	At    time.Time
	Ready int
	Total int
}

// ProbeEventHandler handles scheduler probe events.
type ProbeEventHandler func(event ProbeEvent)

// SchedulerConfig controls background readiness probing.
type SchedulerConfig struct {
	Registry *registry.Registry

	// Schedule is a UTC five-field cron expression. When empty the
	// scheduler falls back to a fixed PollInterval ticker.
	Schedule     string
	PollInterval time.Duration

	Now     func() time.Time
	OnEvent ProbeEventHandler
	Logger  *slog.Logger
}

// Scheduler periodically re-evaluates tool readiness so the readiness
// endpoint reflects tools that degrade or recover after startup.
type Scheduler struct {
	reg          *registry.Registry
	sched        cron.Schedule // nil in interval mode
	pollInterval time.Duration
	now          func() time.Time
	onEvent      ProbeEventHandler
	logger       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a readiness scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Registry == nil {
		return nil, errors.New("health: scheduler registry is nil")
	}
	var sched cron.Schedule
	if cfg.Schedule != "" {
		var err error
		if sched, err = parseSchedule(cfg.Schedule); err != nil {
			return nil, err
		}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultProbeInterval
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.OnEvent == nil {
		cfg.OnEvent = func(ProbeEvent) {}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		reg:          cfg.Registry,
		sched:        sched,
		pollInterval: cfg.PollInterval,
		now:          cfg.Now,
		onEvent:      cfg.OnEvent,
		logger:       logger,
	}, nil
}

// Start begins scheduler execution. Starting a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("health: scheduler is nil")
	}

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.RunOnce(loopCtx)
		if s.sched != nil {
			s.runCron(loopCtx)
			return
		}
		s.runTicker(loopCtx)
	}()

	return nil
}

func (s *Scheduler) runTicker(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Scheduler) runCron(ctx context.Context) {
	for {
		now := s.now().UTC()
		timer := time.NewTimer(s.sched.Next(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop terminates scheduler execution and waits for the loop to exit.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one readiness sweep.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ready := s.reg.RefreshReadiness()
	total := s.reg.Len()
	if ready < total {
		s.logger.Warn("readiness probe found unready tools", "ready", ready, "total", total)
	}
	s.onEvent(ProbeEvent{At: s.now(), Ready: ready, Total: total})
}
