package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationTask is the ephemeral unit of work for one reminder
// delivery, recomputed from flight and order data on every run. It is
// never persisted; the durable state lives in NotificationRecord.
type NotificationTask struct {
	FlightID      string
	Recipient     string
	DepartureTime time.Time
}

// Key returns the notification key identifying the required delivery.
func (t NotificationTask) Key() string {
	return t.FlightID + ":" + strings.ToLower(strings.TrimSpace(t.Recipient))
}

func (t NotificationTask) Validate() error {
	if strings.TrimSpace(t.FlightID) == "" {
		return fmt.Errorf("%w: flight id is required", ErrValidation)
	}
	if strings.TrimSpace(t.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if t.DepartureTime.IsZero() {
		return fmt.Errorf("%w: departure time is required", ErrValidation)
	}
	return nil
}
