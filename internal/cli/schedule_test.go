package cli

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BartekS5/commentflow/internal/config"
)

func TestSchedulerRunSlot(t *testing.T) {
	s := &scheduler{key: "vid"}
	if !s.begin() {
		t.Fatal("expected the first run to claim the slot")
	}
	if s.begin() {
		t.Fatal("a second run must not start while the first is active")
	}

	drained := make(chan struct{})
	go func() {
		s.drain(context.Background())
		close(drained)
	}()
	select {
	case <-drained:
		t.Fatal("drain returned while a run was active")
	case <-time.After(20 * time.Millisecond):
	}
	s.end()
	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("drain did not return after the run ended")
	}

	if !s.begin() {
		t.Fatal("expected the slot to be free after end")
	}
	s.end()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.drain(ctx)
	if ctx.Err() != nil {
		t.Fatal("drain should return immediately when nothing runs")
	}
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var runs atomic.Int32
	s := &scheduler{
		key: "vid",
		now: time.Now,
		run: func(ctx context.Context, day time.Time) error {
			runs.Add(1)
			close(started)
			<-release
			return nil
		},
	}

	done := make(chan bool)
	go func() { done <- s.tick(context.Background()) }()
	<-started

	if s.tick(context.Background()) {
		t.Error("second tick must be skipped while the first run is active")
	}
	close(release)
	if !<-done {
		t.Error("first tick should have run")
	}
	if runs.Load() != 1 {
		t.Errorf("expected 1 run, got %d", runs.Load())
	}
}

func TestSchedulerPassesRunDate(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 6, 0, 0, 0, time.FixedZone("CET", 3600))
	var got time.Time
	s := &scheduler{
		key: "vid",
		now: func() time.Time { return fixed },
		run: func(_ context.Context, day time.Time) error {
			got = day
			return errors.New("failures are logged, not returned")
		},
	}
	if !s.tick(context.Background()) {
		t.Fatal("tick should run")
	}
	if !got.Equal(fixed) || got.Location() != time.UTC {
		t.Errorf("expected UTC run date, got %v", got)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	var runs atomic.Int32
	s := &scheduler{key: "vid", now: time.Now, run: func(context.Context, time.Time) error {
		runs.Add(1)
		return nil
	}}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- serve(ctx, &config.Config{VideoID: "vid"}, s, "@daily", true) }()

	deadline := time.After(2 * time.Second)
	for runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("run-now tick did not fire")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("serve returned %v", err)
	}
}

func TestServeRejectsBadExpression(t *testing.T) {
	s := &scheduler{key: "vid", now: time.Now, run: func(context.Context, time.Time) error { return nil }}
	if err := serve(context.Background(), &config.Config{}, s, "not a cron", false); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}
