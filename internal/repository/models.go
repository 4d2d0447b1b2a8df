package repository

import (
	"time"

	"github.com/example/departure-notifier/internal/domain"
)

// NotificationRecordModel is the persistence model for the
// notification_records table, the only table this service owns.
type NotificationRecordModel struct {
	ID            string              `gorm:"type:uuid;primaryKey"`
	FlightID      string              `gorm:"type:varchar(64);not null;uniqueIndex:idx_notification_records_key,priority:1"`
	Recipient     string              `gorm:"type:varchar(255);not null;uniqueIndex:idx_notification_records_key,priority:2"`
	Status        domain.RecordStatus `gorm:"type:varchar(20);not null"`
	AttemptCount  int                 `gorm:"not null;default:0"`
	MaxAttempts   int                 `gorm:"not null;default:5"`
	LastError     *string             `gorm:"type:text"`
	LastAttemptAt *time.Time          `gorm:"type:timestamptz"`
	SentAt        *time.Time          `gorm:"type:timestamptz"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (NotificationRecordModel) TableName() string {
	return "notification_records"
}

// FlightModel maps the tracker's flights table. Read-only here; the
// tracker owns the schema and its migrations.
type FlightModel struct {
	ID            string    `gorm:"type:varchar(64);primaryKey"`
	RouteID       string    `gorm:"column:route_id"`
	DepartureTime time.Time `gorm:"column:departure_time"`
	ArrivalTime   time.Time `gorm:"column:arrival_time"`
	Terminal      string    `gorm:"column:terminal"`
	Gate          int       `gorm:"column:gate"`
}

func (FlightModel) TableName() string {
	return "flights"
}

// orderRow is the projection of one order joined to a ticket on a
// flight.
type orderRow struct {
	ID           string    `gorm:"column:id"`
	FlightID     string    `gorm:"column:flight_id"`
	HolderName   string    `gorm:"column:holder_name"`
	ContactEmail string    `gorm:"column:contact_email"`
	Status       string    `gorm:"column:status"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func recordModelFromDomain(r *domain.NotificationRecord) *NotificationRecordModel {
	if r == nil {
		return nil
	}

	return &NotificationRecordModel{
		ID:            r.ID,
		FlightID:      r.FlightID,
		Recipient:     r.Recipient,
		Status:        r.Status,
		AttemptCount:  r.AttemptCount,
		MaxAttempts:   r.MaxAttempts,
		LastError:     r.LastError,
		LastAttemptAt: r.LastAttemptAt,
		SentAt:        r.SentAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func recordModelToDomain(m *NotificationRecordModel) *domain.NotificationRecord {
	if m == nil {
		return nil
	}

	return &domain.NotificationRecord{
		ID:            m.ID,
		FlightID:      m.FlightID,
		Recipient:     m.Recipient,
		Status:        m.Status,
		AttemptCount:  m.AttemptCount,
		MaxAttempts:   m.MaxAttempts,
		LastError:     m.LastError,
		LastAttemptAt: m.LastAttemptAt,
		SentAt:        m.SentAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func flightModelToDomain(m *FlightModel) domain.Flight {
	return domain.Flight{
		ID:            m.ID,
		RouteID:       m.RouteID,
		DepartureTime: m.DepartureTime,
		ArrivalTime:   m.ArrivalTime,
		Terminal:      m.Terminal,
		Gate:          m.Gate,
	}
}

func orderRowToDomain(r *orderRow) domain.Order {
	return domain.Order{
		ID:           r.ID,
		FlightID:     r.FlightID,
		HolderName:   r.HolderName,
		ContactEmail: r.ContactEmail,
		Status:       domain.OrderStatus(r.Status),
		CreatedAt:    r.CreatedAt,
	}
}
