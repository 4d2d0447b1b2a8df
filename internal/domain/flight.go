package domain

import (
	"strings"
	"time"
)

// Flight is a point-in-time snapshot of a tracker flight row. The
// notifier only reads it; ownership stays with the tracker.
type Flight struct {
	ID            string
	RouteID       string
	DepartureTime time.Time
	ArrivalTime   time.Time
	Terminal      string
	Gate          int
}

// OrderStatus represents the tracker-side state of an order.
type OrderStatus string

const (
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) String() string { return string(s) }

// Order is a read-side projection of one tracker order holding at least
// one ticket on a flight.
type Order struct {
	ID           string
	FlightID     string
	HolderName   string
	ContactEmail string
	Status       OrderStatus
	CreatedAt    time.Time
}

func (o Order) Cancelled() bool {
	return OrderStatus(strings.ToUpper(strings.TrimSpace(o.Status.String()))) == OrderStatusCancelled
}
