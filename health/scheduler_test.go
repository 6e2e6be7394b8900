package health

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/windlass-dev/windlass/registry"
)

func TestScheduler_RunOnce(t *testing.T) {
	reg := registry.New()
	tool := &stubTool{ready: true}
	if err := reg.Register("stub", tool); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var events []ProbeEvent
	s, err := NewScheduler(SchedulerConfig{
		Registry: reg,
		OnEvent:  func(e ProbeEvent) { events = append(events, e) },
		Logger:   slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.RunOnce(context.Background())
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Ready != 1 || events[0].Total != 1 {
		t.Errorf("event = %+v, want 1/1 ready", events[0])
	}

	tool.setReady(false)
	s.RunOnce(context.Background())
	if events[1].Ready != 0 {
		t.Errorf("event = %+v, want 0 ready after tool degraded", events[1])
	}
	if reg.AllReady() {
		t.Error("registry readiness should reflect the probe")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	reg := registry.New()
	if err := reg.Register("stub", &stubTool{ready: true}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	probed := make(chan ProbeEvent, 16)
	s, err := NewScheduler(SchedulerConfig{
		Registry:     reg,
		PollInterval: 5 * time.Millisecond,
		OnEvent:      func(e ProbeEvent) { probed <- e },
		Logger:       slog.New(slog.DiscardHandler),
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Starting twice is a no-op.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	select {
	case <-probed:
	case <-time.After(time.Second):
		t.Fatal("scheduler never probed")
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Stopping twice is a no-op.
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestScheduler_RejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler(SchedulerConfig{
		Registry: registry.New(),
		Schedule: "TZ=UTC * * * * *",
	})
	if err == nil {
		t.Error("NewScheduler should validate the cron expression up front")
	}
}

func TestParseSchedule(t *testing.T) {
	if _, err := parseSchedule("*/5 * * * *"); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
	for _, expr := range []string{
		"",
		"bogus",
		"* * * * * *", // six fields
		"TZ=UTC * * * * *",
		"CRON_TZ=America/New_York */5 * * * *",
	} {
		if _, err := parseSchedule(expr); err == nil {
			t.Errorf("parseSchedule(%q) should fail", expr)
		}
	}
}

func TestParseSchedule_NextRunsInUTC(t *testing.T) {
	sched, err := parseSchedule("*/5 * * * *")
	if err != nil {
		t.Fatalf("parseSchedule: %v", err)
	}

	now := time.Date(2026, 3, 10, 12, 2, 30, 0, time.UTC)
	want := time.Date(2026, 3, 10, 12, 5, 0, 0, time.UTC)
	if next := sched.Next(now); !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	// The scheduler normalizes to UTC before asking for the next run,
	// so a zoned clock lands on the same instant.
	loc := time.FixedZone("UTC+3", 3*60*60)
	zoned := time.Date(2026, 3, 10, 15, 2, 30, 0, loc) // 12:02:30 UTC
	if next := sched.Next(zoned.UTC()); !next.Equal(want) {
		t.Errorf("next from zoned clock = %v, want %v", next, want)
	}
}

func TestScheduler_RequiresRegistry(t *testing.T) {
	if _, err := NewScheduler(SchedulerConfig{}); err == nil {
		t.Error("NewScheduler should reject a nil registry")
	}
}
