package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/departure-notifier/internal/domain"
	"github.com/example/departure-notifier/internal/observability"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFlightConcurrency   = 4
	defaultDispatchConcurrency = 8
)

// Report summarizes one pipeline run. It is the sole user-visible
// surface of the notifier.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	Flights          int
	Tasks            int
	Skipped          int
	Sent             int
	Failed           int
	TerminallyFailed int
	ResolutionErrors int

	Errors []string
}

// Fatal reports whether the run aborted before processing any flight.
func (r Report) Fatal() bool {
	return r.Flights == 0 && r.Tasks == 0 && len(r.Errors) > 0 && r.ResolutionErrors == 0
}

// Orchestrator executes one run: window query, recipient resolution,
// and dispatch with bounded concurrency. Failures of single flights or
// recipients are isolated and collected; only a window query failure is
// fatal for the run.
type Orchestrator struct {
	window     *WindowQuery
	resolver   *Resolver
	dispatcher *Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics

	flightConcurrency   int
	dispatchConcurrency int
	now                 func() time.Time
}

func NewOrchestrator(
	window *WindowQuery,
	resolver *Resolver,
	dispatcher *Dispatcher,
	flightConcurrency int,
	dispatchConcurrency int,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if window == nil {
		return nil, fmt.Errorf("window query is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if flightConcurrency < 1 {
		flightConcurrency = defaultFlightConcurrency
	}
	if dispatchConcurrency < 1 {
		dispatchConcurrency = defaultDispatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		window:              window,
		resolver:            resolver,
		dispatcher:          dispatcher,
		logger:              logger,
		flightConcurrency:   flightConcurrency,
		dispatchConcurrency: dispatchConcurrency,
		now:                 time.Now,
	}, nil
}

func (o *Orchestrator) SetMetrics(metrics *observability.Metrics) {
	if o == nil {
		return
	}
	o.metrics = metrics
	o.dispatcher.SetMetrics(metrics)
}

// Run executes one pipeline invocation. A zero now means "use the wall
// clock"; tests and manual re-runs inject their own instant.
func (o *Orchestrator) Run(ctx context.Context, now time.Time) Report {
	if ctx == nil {
		ctx = context.Background()
	}
	if now.IsZero() {
		now = o.now()
	}

	report := Report{
		RunID:   uuid.NewString(),
		Started: o.now().UTC(),
	}

	ctx = observability.WithRunID(ctx, report.RunID)
	logger := observability.WithContextLogger(o.logger, ctx)

	flights, err := o.window.DepartingFlights(ctx, now)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("departure window query: %v", err))
		report.Finished = o.now().UTC()
		logger.Error("pipeline run aborted, flight data source unavailable", zap.Error(err))
		o.observeRun(report)
		return report
	}

	report.Flights = len(flights)

	var mu sync.Mutex
	flightGroup := new(errgroup.Group)
	flightGroup.SetLimit(o.flightConcurrency)

	for _, flight := range flights {
		flight := flight
		flightGroup.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			recipients, err := o.resolver.Recipients(ctx, flight)
			if err != nil {
				mu.Lock()
				report.ResolutionErrors++
				report.Errors = append(report.Errors, fmt.Sprintf("resolve recipients for flight %s: %v", flight.ID, err))
				mu.Unlock()
				return nil
			}

			taskGroup := new(errgroup.Group)
			taskGroup.SetLimit(o.dispatchConcurrency)

			for _, recipient := range recipients {
				task := domain.NotificationTask{
					FlightID:      flight.ID,
					Recipient:     recipient,
					DepartureTime: flight.DepartureTime,
				}

				taskGroup.Go(func() error {
					// No new dispatches after cancellation; in-flight
					// ones finish their record mutation.
					if ctx.Err() != nil {
						return nil
					}

					status, err := o.dispatcher.Dispatch(ctx, task)

					mu.Lock()
					defer mu.Unlock()
					report.Tasks++
					switch status {
					case DispatchSent:
						report.Sent++
					case DispatchSkipped:
						report.Skipped++
					case DispatchTerminal:
						report.TerminallyFailed++
					case DispatchFailed:
						report.Failed++
					}
					if err != nil {
						report.Errors = append(report.Errors, fmt.Sprintf("dispatch %s: %v", task.Key(), err))
					}
					return nil
				})
			}

			return taskGroup.Wait()
		})
	}

	// Workers always return nil; failures land in the report.
	_ = flightGroup.Wait()

	report.Finished = o.now().UTC()

	logger.Info("pipeline run finished",
		zap.Int("flights", report.Flights),
		zap.Int("tasks", report.Tasks),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("terminallyFailed", report.TerminallyFailed),
		zap.Int("resolutionErrors", report.ResolutionErrors),
		zap.Duration("elapsed", report.Finished.Sub(report.Started)),
	)
	o.observeRun(report)

	return report
}

func (o *Orchestrator) observeRun(report Report) {
	if o.metrics == nil {
		return
	}

	outcome := "completed"
	switch {
	case report.Fatal():
		outcome = "aborted"
	case len(report.Errors) > 0:
		outcome = "partial_failure"
	}

	o.metrics.ObservePipelineRun(outcome, report.Finished.Sub(report.Started))
}
