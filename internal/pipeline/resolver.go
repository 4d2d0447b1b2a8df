package pipeline

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/example/departure-notifier/internal/domain"
	"github.com/example/departure-notifier/internal/repository"
	"go.uber.org/zap"
)

// Resolver expands a flight into its distinct reminder recipients. Two
// orders by the same holder, or several tickets sent to one address,
// collapse to a single recipient.
type Resolver struct {
	source repository.FlightSource
	logger *zap.Logger
}

func NewResolver(source repository.FlightSource, logger *zap.Logger) (*Resolver, error) {
	if source == nil {
		return nil, fmt.Errorf("flight source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		source: source,
		logger: logger,
	}, nil
}

// Recipients returns the sorted, deduplicated recipient addresses for
// the flight's non-cancelled orders. A malformed address skips that one
// order; only a data source failure is fatal for the flight.
func (r *Resolver) Recipients(ctx context.Context, flight domain.Flight) ([]string, error) {
	orders, err := r.source.OrdersForFlight(ctx, flight.ID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(orders))
	recipients := make([]string, 0, len(orders))

	for _, order := range orders {
		if order.Cancelled() {
			continue
		}

		address, err := normalizeAddress(order.ContactEmail)
		if err != nil {
			r.logger.Warn("skipping order with unusable contact address",
				zap.String("orderId", order.ID),
				zap.String("flightId", flight.ID),
				zap.Error(err),
			)
			continue
		}

		if _, ok := seen[address]; ok {
			continue
		}
		seen[address] = struct{}{}
		recipients = append(recipients, address)
	}

	sort.Strings(recipients)
	return recipients, nil
}

func normalizeAddress(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: contact address is empty", domain.ErrValidation)
	}

	parsed, err := mail.ParseAddress(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: malformed contact address %q: %v", domain.ErrValidation, raw, err)
	}

	return strings.ToLower(parsed.Address), nil
}
