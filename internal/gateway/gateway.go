package gateway

import (
	"context"
	"time"
)

// Reminder is the payload for one departure reminder delivery.
type Reminder struct {
	Recipient     string
	FlightID      string
	DepartureTime time.Time
}

// Gateway is the outbound delivery port for departure reminders.
type Gateway interface {
	Send(ctx context.Context, reminder Reminder) (*GatewayResponse, error)
}

// GatewayResponse stores gateway call metadata for audit and logging.
type GatewayResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
