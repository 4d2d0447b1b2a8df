package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/departure-notifier/internal/domain"
	"gorm.io/gorm"
)

// FlightSource is the read-only port over the tracker's flight and
// order data.
type FlightSource interface {
	// FlightsDepartingBetween returns flights with
	// start < departure_time <= end, ascending by departure time.
	FlightsDepartingBetween(ctx context.Context, start, end time.Time) ([]domain.Flight, error)
	// OrdersForFlight returns every order holding at least one ticket
	// on the flight, cancelled orders included.
	OrdersForFlight(ctx context.Context, flightID string) ([]domain.Order, error)
}

type GormFlightSource struct {
	db *gorm.DB
}

func NewGormFlightSource(db *gorm.DB) *GormFlightSource {
	return &GormFlightSource{db: db}
}

func (s *GormFlightSource) FlightsDepartingBetween(ctx context.Context, start, end time.Time) ([]domain.Flight, error) {
	var models []FlightModel
	err := s.db.WithContext(ctx).
		Where("departure_time > ? AND departure_time <= ?", start, end).
		Order("departure_time ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list departing flights: %v", domain.ErrDataSource, err)
	}

	flights := make([]domain.Flight, 0, len(models))
	for i := range models {
		flights = append(flights, flightModelToDomain(&models[i]))
	}

	return flights, nil
}

func (s *GormFlightSource) OrdersForFlight(ctx context.Context, flightID string) ([]domain.Order, error) {
	var rows []orderRow
	err := s.db.WithContext(ctx).
		Table("orders").
		Select("DISTINCT orders.id, tickets.flight_id, orders.holder_name, orders.contact_email, orders.status, orders.created_at").
		Joins("JOIN tickets ON tickets.order_id = orders.id").
		Where("tickets.flight_id = ?", flightID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list orders for flight %s: %v", domain.ErrDataSource, flightID, err)
	}

	orders := make([]domain.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, orderRowToDomain(&rows[i]))
	}

	return orders, nil
}
