package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/departure-notifier/internal/domain"
	"github.com/example/departure-notifier/internal/gateway"
	"github.com/example/departure-notifier/internal/repository"
	"github.com/google/uuid"
)

type fakeFlightSource struct {
	mu            sync.Mutex
	flights       []domain.Flight
	orders        map[string][]domain.Order
	flightsErr    error
	ordersErr     map[string]error
	flightQueries int
}

func (f *fakeFlightSource) FlightsDepartingBetween(_ context.Context, start, end time.Time) ([]domain.Flight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.flightQueries++

	if f.flightsErr != nil {
		return nil, f.flightsErr
	}

	out := make([]domain.Flight, 0, len(f.flights))
	for _, flight := range f.flights {
		if flight.DepartureTime.After(start) && !flight.DepartureTime.After(end) {
			out = append(out, flight)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DepartureTime.Before(out[j].DepartureTime)
	})
	return out, nil
}

func (f *fakeFlightSource) flightQueryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flightQueries
}

func (f *fakeFlightSource) OrdersForFlight(_ context.Context, flightID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.ordersErr[flightID]; err != nil {
		return nil, err
	}
	return f.orders[flightID], nil
}

// memoryRecordRepo mimics the ledger semantics of the Gorm repository:
// create-if-absent under a lock, attempt callback while the key is
// held, outcome written before release.
type memoryRecordRepo struct {
	mu        sync.Mutex
	records   map[string]*domain.NotificationRecord
	getErr    error
	upsertErr error
}

func newMemoryRecordRepo() *memoryRecordRepo {
	return &memoryRecordRepo{records: make(map[string]*domain.NotificationRecord)}
}

func recordKey(flightID, recipient string) string {
	return flightID + "|" + recipient
}

func (r *memoryRecordRepo) Get(_ context.Context, flightID, recipient string) (*domain.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return nil, r.getErr
	}

	record, ok := r.records[recordKey(flightID, recipient)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *memoryRecordRepo) UpsertAttempt(ctx context.Context, flightID, recipient string, maxAttempts int, attempt repository.AttemptFunc) (*domain.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.upsertErr != nil {
		return nil, r.upsertErr
	}

	key := recordKey(flightID, recipient)
	record, ok := r.records[key]
	if !ok {
		record = &domain.NotificationRecord{
			ID:          uuid.NewString(),
			FlightID:    flightID,
			Recipient:   recipient,
			Status:      domain.RecordStatusPending,
			MaxAttempts: maxAttempts,
			CreatedAt:   time.Now().UTC(),
		}
		r.records[key] = record
	}

	current := *record
	outcome := attempt(ctx, &current)
	if outcome == nil {
		copied := *record
		return &copied, nil
	}

	at := outcome.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	record.AttemptCount++
	record.LastAttemptAt = &at
	if outcome.Sent {
		record.Status = domain.RecordStatusSent
		record.SentAt = &at
		record.LastError = nil
	} else {
		record.Status = domain.RecordStatusFailed
		errText := outcome.Error
		record.LastError = &errText
	}
	record.UpdatedAt = at

	copied := *record
	return &copied, nil
}

func (r *memoryRecordRepo) List(_ context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.NotificationRecord, 0, len(r.records))
	for _, record := range r.records {
		if params.Status != nil && record.Status != *params.Status {
			continue
		}
		if params.FlightID != nil && record.FlightID != *params.FlightID {
			continue
		}
		out = append(out, *record)
	}
	return out, int64(len(out)), nil
}

func (r *memoryRecordRepo) ResetForResend(_ context.Context, flightID, recipient string) (*domain.NotificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[recordKey(flightID, recipient)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if record.Status == domain.RecordStatusSent {
		return nil, domain.ErrConflict
	}

	record.Status = domain.RecordStatusPending
	record.AttemptCount = 0
	record.LastError = nil

	copied := *record
	return &copied, nil
}

type fakeGateway struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, reminder gateway.Reminder) (*gateway.GatewayResponse, error)
	sends  []gateway.Reminder
}

func (g *fakeGateway) Send(ctx context.Context, reminder gateway.Reminder) (*gateway.GatewayResponse, error) {
	g.mu.Lock()
	g.sends = append(g.sends, reminder)
	fn := g.sendFn
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, reminder)
	}
	return &gateway.GatewayResponse{StatusCode: 202}, nil
}

func (g *fakeGateway) sendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

func (g *fakeGateway) sendsTo(recipient string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := 0
	for _, reminder := range g.sends {
		if reminder.Recipient == recipient {
			count++
		}
	}
	return count
}

type fakeRateLimiter struct {
	waitFn func(ctx context.Context, scope string) error
}

func (l *fakeRateLimiter) Allow(_ context.Context, _ string) (bool, error) {
	return true, nil
}

func (l *fakeRateLimiter) Wait(ctx context.Context, scope string) error {
	if l.waitFn != nil {
		return l.waitFn(ctx, scope)
	}
	return nil
}
