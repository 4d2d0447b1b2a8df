package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_LevelMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		level        string
		debugEnabled bool
	}{
		{name: "debug level", level: "debug", debugEnabled: true},
		{name: "info level", level: "info", debugEnabled: false},
		{name: "empty level defaults to info", level: "", debugEnabled: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if logger == nil {
				t.Fatal("logger should not be nil")
			}

			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tc.debugEnabled {
				t.Fatalf("debug enabled=%v, want=%v", got, tc.debugEnabled)
			}
		})
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Parallel()

	if _, err := NewLogger("loud"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestRunIDContextRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithRunID(context.Background(), "run-42")

	runID, ok := RunIDFromContext(ctx)
	if !ok {
		t.Fatal("run id should be present")
	}
	if runID != "run-42" {
		t.Fatalf("run id = %q, want run-42", runID)
	}

	if _, ok := RunIDFromContext(context.Background()); ok {
		t.Fatal("run id should be absent on fresh context")
	}
}

func TestWithContextLoggerAddsRunID(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	ctx := WithRunID(context.Background(), "run-7")
	WithContextLogger(logger, ctx).Info("pipeline run finished")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["runId"] != "run-7" {
		t.Fatalf("runId field = %v, want run-7", fields["runId"])
	}
}
