package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/departure-notifier/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptOutcome is the result of one delivery attempt to be written on
// the record before the per-key lock is released.
type AttemptOutcome struct {
	Sent  bool
	Error string
	At    time.Time
}

// AttemptFunc performs one delivery attempt against the current record
// state while the key is locked. Returning nil leaves the record
// untouched (idempotent skip); a non-nil outcome increments the attempt
// count and writes the result.
type AttemptFunc func(ctx context.Context, current *domain.NotificationRecord) *AttemptOutcome

type ListParams struct {
	Status   *domain.RecordStatus
	FlightID *string
	Page     int
	PageSize int
}

// RecordRepository is the durable ledger of dispatched reminder keys.
type RecordRepository interface {
	Get(ctx context.Context, flightID, recipient string) (*domain.NotificationRecord, error)
	// UpsertAttempt serializes one dispatch attempt for the key. The
	// record is created when absent and its row stays locked for the
	// whole attempt, so two concurrent runs can never both observe a
	// non-terminal state and both send.
	UpsertAttempt(ctx context.Context, flightID, recipient string, maxAttempts int, attempt AttemptFunc) (*domain.NotificationRecord, error)
	List(ctx context.Context, params ListParams) ([]domain.NotificationRecord, int64, error)
	// ResetForResend re-opens a failed record so the next run retries
	// it. Sent records are terminal and stay untouched.
	ResetForResend(ctx context.Context, flightID, recipient string) (*domain.NotificationRecord, error)
}

type GormRecordRepo struct {
	db *gorm.DB
}

func NewGormRecordRepo(db *gorm.DB) *GormRecordRepo {
	return &GormRecordRepo{db: db}
}

func (r *GormRecordRepo) Get(ctx context.Context, flightID, recipient string) (*domain.NotificationRecord, error) {
	var model NotificationRecordModel
	err := r.db.WithContext(ctx).
		Where("flight_id = ? AND recipient = ?", flightID, recipient).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get record %s/%s: %v", domain.ErrRecordStore, flightID, recipient, err)
	}
	return recordModelToDomain(&model), nil
}

func (r *GormRecordRepo) UpsertAttempt(ctx context.Context, flightID, recipient string, maxAttempts int, attempt AttemptFunc) (*domain.NotificationRecord, error) {
	if attempt == nil {
		return nil, fmt.Errorf("attempt func is required")
	}
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}

	var result *domain.NotificationRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := lockRecordForKey(tx, flightID, recipient, maxAttempts)
		if err != nil {
			return err
		}

		outcome := attempt(ctx, recordModelToDomain(model))
		if outcome == nil {
			result = recordModelToDomain(model)
			return nil
		}

		at := outcome.At
		if at.IsZero() {
			at = time.Now().UTC()
		}

		model.AttemptCount++
		model.LastAttemptAt = &at
		if outcome.Sent {
			model.Status = domain.RecordStatusSent
			model.SentAt = &at
			model.LastError = nil
		} else {
			model.Status = domain.RecordStatusFailed
			errText := outcome.Error
			model.LastError = &errText
		}

		if err := tx.Save(model).Error; err != nil {
			return err
		}

		result = recordModelToDomain(model)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: upsert attempt %s/%s: %v", domain.ErrRecordStore, flightID, recipient, err)
	}

	return result, nil
}

// lockRecordForKey loads the record row under FOR UPDATE, inserting a
// fresh PENDING row first when the key has never been dispatched. The
// ON CONFLICT no-op plus re-read keeps concurrent creators serialized
// on the unique key index.
func lockRecordForKey(tx *gorm.DB, flightID, recipient string, maxAttempts int) (*NotificationRecordModel, error) {
	var model NotificationRecordModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("flight_id = ? AND recipient = ?", flightID, recipient).
		First(&model).Error
	if err == nil {
		return &model, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fresh := NotificationRecordModel{
		ID:          uuid.NewString(),
		FlightID:    flightID,
		Recipient:   recipient,
		Status:      domain.RecordStatusPending,
		MaxAttempts: maxAttempts,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, err
	}

	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("flight_id = ? AND recipient = ?", flightID, recipient).
		First(&model).Error; err != nil {
		return nil, err
	}

	return &model, nil
}

func (r *GormRecordRepo) List(ctx context.Context, params ListParams) ([]domain.NotificationRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationRecordModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.FlightID != nil {
		query = query.Where("flight_id = ?", *params.FlightID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: count records: %v", domain.ErrRecordStore, err)
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []NotificationRecordModel
	err := query.
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list records: %v", domain.ErrRecordStore, err)
	}

	records := make([]domain.NotificationRecord, 0, len(models))
	for i := range models {
		records = append(records, *recordModelToDomain(&models[i]))
	}

	return records, total, nil
}

func (r *GormRecordRepo) ResetForResend(ctx context.Context, flightID, recipient string) (*domain.NotificationRecord, error) {
	var result *domain.NotificationRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model NotificationRecordModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("flight_id = ? AND recipient = ?", flightID, recipient).
			First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if model.Status == domain.RecordStatusSent {
			return fmt.Errorf("%w: record already sent", domain.ErrConflict)
		}

		model.Status = domain.RecordStatusPending
		model.AttemptCount = 0
		model.LastError = nil
		if err := tx.Save(&model).Error; err != nil {
			return err
		}

		result = recordModelToDomain(&model)
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: reset record %s/%s: %v", domain.ErrRecordStore, flightID, recipient, err)
	}

	return result, nil
}
