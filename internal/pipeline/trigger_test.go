package pipeline

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestTriggerRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	source := &fakeFlightSource{}
	records := newMemoryRecordRepo()
	gw := &fakeGateway{}

	orchestrator := newTestOrchestrator(t, source, records, gw, 5)

	trigger, err := NewTrigger(orchestrator, time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTrigger() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- trigger.Start(ctx)
	}()

	// The first run fires before the first tick.
	deadline := time.After(2 * time.Second)
	for {
		if source.flightQueryCount() > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("trigger never executed the initial run")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not stop after context cancellation")
	}
}

func TestTriggerFiresOnInterval(t *testing.T) {
	t.Parallel()

	source := &fakeFlightSource{}
	records := newMemoryRecordRepo()
	gw := &fakeGateway{}

	orchestrator := newTestOrchestrator(t, source, records, gw, 5)

	trigger, err := NewTrigger(orchestrator, 20*time.Millisecond, zap.NewNop())
	if err != nil {
		t.Fatalf("NewTrigger() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = trigger.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for source.flightQueryCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 runs, got %d", source.flightQueryCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestNewTriggerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewTrigger(nil, time.Hour, zap.NewNop()); err == nil {
		t.Fatal("expected error when orchestrator is nil")
	}
}
