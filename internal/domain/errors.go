package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// ErrDataSource marks flight/order store failures. It is fatal for
	// the current run; the next trigger retries naturally.
	ErrDataSource = errors.New("flight data source unavailable")

	// ErrRecordStore marks ledger failures. It is fatal for the affected
	// task: a reminder is never sent without a durable attempt record.
	ErrRecordStore = errors.New("notification record store unavailable")
)
