package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/departure-notifier/internal/domain"
	"github.com/example/departure-notifier/internal/gateway"
	"github.com/example/departure-notifier/internal/observability"
	"github.com/example/departure-notifier/internal/ratelimit"
	"github.com/example/departure-notifier/internal/repository"
	"go.uber.org/zap"
)

const (
	defaultSendTimeout = 10 * time.Second

	// gatewayScope is the rate limiter scope shared by all notifier
	// instances hitting the delivery gateway.
	gatewayScope = "gateway"
)

// DispatchStatus is the outcome category of one dispatch invocation.
type DispatchStatus string

const (
	DispatchSkipped  DispatchStatus = "SKIPPED"
	DispatchSent     DispatchStatus = "SENT"
	DispatchFailed   DispatchStatus = "FAILED"
	DispatchTerminal DispatchStatus = "TERMINALLY_FAILED"
)

// Dispatcher delivers one reminder per task, at most once per key
// across any number of runs. The record store serializes concurrent
// dispatches for the same key; the dispatcher never sends without first
// holding the key and never returns before the outcome is recorded.
type Dispatcher struct {
	records     repository.RecordRepository
	gateway     gateway.Gateway
	limiter     ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
	sendTimeout time.Duration
	now         func() time.Time
}

func NewDispatcher(
	records repository.RecordRepository,
	gw gateway.Gateway,
	limiter ratelimit.RateLimiter,
	maxAttempts int,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if records == nil {
		return nil, fmt.Errorf("record repository is required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		records:     records,
		gateway:     gw,
		limiter:     limiter,
		logger:      logger,
		maxAttempts: maxAttempts,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch processes one task. The returned error is non-nil when the
// gateway rejected the send (already recorded on the ledger) or when
// the record store was unreachable (nothing sent, nothing recorded);
// it never means an unrecorded send happened.
func (d *Dispatcher) Dispatch(ctx context.Context, task domain.NotificationTask) (DispatchStatus, error) {
	if err := task.Validate(); err != nil {
		return DispatchFailed, err
	}

	logger := observability.WithContextLogger(d.logger, ctx).With(
		zap.String("flightId", task.FlightID),
		zap.String("recipient", task.Recipient),
	)

	if d.metrics != nil {
		d.metrics.IncDispatchInFlight()
		defer d.metrics.DecDispatchInFlight()
	}

	// Cheap pre-check outside the key lock; the steady state after a
	// successful run is all-SENT.
	existing, err := d.records.Get(ctx, task.FlightID, task.Recipient)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return DispatchFailed, err
	}
	if existing != nil {
		if existing.Status == domain.RecordStatusSent {
			d.markSkipped(logger)
			return DispatchSkipped, nil
		}
		if existing.Exhausted() {
			logger.Debug("reminder terminally failed in a prior run, not retrying",
				zap.Int("attempts", existing.AttemptCount),
			)
			return DispatchTerminal, nil
		}
	}

	status := DispatchSkipped
	var sendErr error

	// The record mutation must survive run cancellation so a started
	// attempt is never left half-updated.
	recordCtx := context.WithoutCancel(ctx)

	updated, err := d.records.UpsertAttempt(recordCtx, task.FlightID, task.Recipient, d.maxAttempts,
		func(_ context.Context, current *domain.NotificationRecord) *repository.AttemptOutcome {
			// Re-check under the key lock: another run may have finished
			// the key between the pre-check and now.
			if current.Status == domain.RecordStatusSent {
				status = DispatchSkipped
				return nil
			}
			if current.Exhausted() {
				status = DispatchTerminal
				return nil
			}

			if ctx.Err() != nil {
				status = DispatchFailed
				sendErr = fmt.Errorf("run cancelled before send: %w", ctx.Err())
				return nil
			}

			if err := d.limiter.Wait(ctx, gatewayScope); err != nil {
				status = DispatchFailed
				sendErr = fmt.Errorf("rate limiter wait failed: %w", err)
				return nil
			}

			sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
			defer cancel()

			sendStart := d.now()
			_, err := d.gateway.Send(sendCtx, gateway.Reminder{
				Recipient:     task.Recipient,
				FlightID:      task.FlightID,
				DepartureTime: task.DepartureTime,
			})
			if d.metrics != nil {
				d.metrics.ObserveGatewaySendDuration(d.now().Sub(sendStart))
			}

			at := d.now().UTC()
			if err != nil {
				status = DispatchFailed
				sendErr = err
				return &repository.AttemptOutcome{Sent: false, Error: err.Error(), At: at}
			}

			status = DispatchSent
			return &repository.AttemptOutcome{Sent: true, At: at}
		})
	if err != nil {
		logger.Error("dispatch attempt could not be recorded", zap.Error(err))
		return DispatchFailed, err
	}

	switch status {
	case DispatchSent:
		logger.Info("departure reminder sent",
			zap.Int("attempt", updated.AttemptCount),
		)
		if d.metrics != nil {
			d.metrics.IncReminderSent()
		}
	case DispatchSkipped:
		d.markSkipped(logger)
	case DispatchTerminal:
		logger.Warn("reminder terminally failed, attempt cap reached",
			zap.Int("attempts", attemptCount(updated, existing)),
		)
		if d.metrics != nil {
			d.metrics.IncReminderFailed("retry_exhausted")
		}
	case DispatchFailed:
		logger.Warn("reminder dispatch failed",
			zap.Int("attempt", attemptCount(updated, existing)),
			zap.Bool("transient", gateway.IsTransient(sendErr)),
			zap.Error(sendErr),
		)
		if d.metrics != nil {
			d.metrics.IncReminderFailed(failureReason(sendErr))
		}
		if updated != nil && updated.Exhausted() {
			status = DispatchTerminal
		}
	}

	return status, sendErr
}

func (d *Dispatcher) markSkipped(logger *zap.Logger) {
	logger.Debug("reminder already sent, skipping")
	if d.metrics != nil {
		d.metrics.IncReminderSkipped()
	}
}

func attemptCount(updated, existing *domain.NotificationRecord) int {
	if updated != nil {
		return updated.AttemptCount
	}
	if existing != nil {
		return existing.AttemptCount
	}
	return 0
}

func failureReason(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, context.DeadlineExceeded):
		return "gateway_timeout"
	case gateway.IsTransient(err):
		return "gateway_transient"
	default:
		return "gateway_error"
	}
}
