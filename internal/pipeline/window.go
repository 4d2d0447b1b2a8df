package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/example/departure-notifier/internal/domain"
	"github.com/example/departure-notifier/internal/repository"
	"go.uber.org/zap"
)

const defaultLookahead = 24 * time.Hour

// WindowQuery selects the flights entering the notification window:
// now < departure_time <= now + lookahead, ascending by departure time.
// The instant is injected by the caller so runs stay deterministic.
type WindowQuery struct {
	flights   repository.FlightSource
	lookahead time.Duration
	logger    *zap.Logger
}

func NewWindowQuery(flights repository.FlightSource, lookahead time.Duration, logger *zap.Logger) (*WindowQuery, error) {
	if flights == nil {
		return nil, fmt.Errorf("flight source is required")
	}
	if lookahead <= 0 {
		lookahead = defaultLookahead
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WindowQuery{
		flights:   flights,
		lookahead: lookahead,
		logger:    logger,
	}, nil
}

// DepartingFlights returns the window's candidate flights. A data
// source failure propagates untouched; the orchestrator decides
// run-level handling.
func (q *WindowQuery) DepartingFlights(ctx context.Context, now time.Time) ([]domain.Flight, error) {
	start := now
	end := now.Add(q.lookahead)

	flights, err := q.flights.FlightsDepartingBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	q.logger.Debug("departure window resolved",
		zap.Time("windowStart", start),
		zap.Time("windowEnd", end),
		zap.Int("flights", len(flights)),
	)

	return flights, nil
}
