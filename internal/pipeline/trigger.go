package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const defaultTriggerInterval = time.Hour

// Trigger invokes the orchestrator on a fixed cadence. Retry of failed
// reminders happens across runs: the cadence itself is the backoff.
type Trigger struct {
	orchestrator *Orchestrator
	interval     time.Duration
	logger       *zap.Logger
}

func NewTrigger(orchestrator *Orchestrator, interval time.Duration, logger *zap.Logger) (*Trigger, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if interval <= 0 {
		interval = defaultTriggerInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Trigger{
		orchestrator: orchestrator,
		interval:     interval,
		logger:       logger,
	}, nil
}

// Start runs the pipeline until context cancellation. The first run
// fires immediately so a fresh deploy does not wait a full interval.
func (t *Trigger) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	t.runOnce(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.runOnce(ctx)
		}
	}
}

func (t *Trigger) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	report := t.orchestrator.Run(ctx, time.Time{})
	if report.Fatal() {
		t.logger.Error("scheduled run aborted",
			zap.String("runId", report.RunID),
			zap.Strings("errors", report.Errors),
		)
	}
}
