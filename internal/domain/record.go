package domain

import (
	"fmt"
	"strings"
	"time"
)

// RecordStatus represents the lifecycle state of a notification record.
type RecordStatus string

const (
	RecordStatusPending RecordStatus = "PENDING"
	RecordStatusSent    RecordStatus = "SENT"
	RecordStatusFailed  RecordStatus = "FAILED"
)

func (s RecordStatus) String() string { return string(s) }

func (s RecordStatus) IsValid() bool {
	switch s {
	case RecordStatusPending, RecordStatusSent, RecordStatusFailed:
		return true
	}
	return false
}

func ParseRecordStatusFromString(s string) (RecordStatus, error) {
	st := RecordStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid record status %q", ErrValidation, s)
	}
	return st, nil
}

// DefaultMaxAttempts caps delivery attempts per key when no explicit
// cap is configured.
const DefaultMaxAttempts = 5

// NotificationRecord is the durable ledger entry for one departure
// reminder, keyed by (flight id, recipient address). At most one record
// exists per key; records are never deleted.
type NotificationRecord struct {
	ID            string
	FlightID      string
	Recipient     string
	Status        RecordStatus
	AttemptCount  int
	MaxAttempts   int
	LastError     *string
	LastAttemptAt *time.Time
	SentAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *NotificationRecord) Validate() error {
	if strings.TrimSpace(r.FlightID) == "" {
		return fmt.Errorf("%w: flight id is required", ErrValidation)
	}
	if strings.TrimSpace(r.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid record status %q", ErrValidation, r.Status)
	}
	return nil
}

// Exhausted reports whether the record failed and has no attempts left.
func (r *NotificationRecord) Exhausted() bool {
	if r == nil {
		return false
	}
	maxAttempts := r.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return r.Status == RecordStatusFailed && r.AttemptCount >= maxAttempts
}

// Terminal reports whether no further dispatch may happen for the key.
// SENT is always terminal; FAILED becomes terminal once the attempt cap
// is reached.
func (r *NotificationRecord) Terminal() bool {
	if r == nil {
		return false
	}
	return r.Status == RecordStatusSent || r.Exhausted()
}
