package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/departure-notifier/internal/domain"
	"github.com/example/departure-notifier/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

// RecordStore is the subset of the ledger the operator API needs.
type RecordStore interface {
	Get(ctx context.Context, flightID, recipient string) (*domain.NotificationRecord, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.NotificationRecord, int64, error)
	ResetForResend(ctx context.Context, flightID, recipient string) (*domain.NotificationRecord, error)
}

type RecordHandler struct {
	records RecordStore
}

func NewRecordHandler(records RecordStore) (*RecordHandler, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	return &RecordHandler{records: records}, nil
}

func RegisterRecordRoutes(router fiber.Router, records RecordStore) error {
	h, err := NewRecordHandler(records)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/records", h.ListRecords)
	v1.Get("/records/:flightId/:recipient", h.GetRecord)
	v1.Post("/records/resend", h.ResendRecord)

	return nil
}

type recordResponse struct {
	ID            string     `json:"id"`
	FlightID      string     `json:"flightId"`
	Recipient     string     `json:"recipient"`
	Status        string     `json:"status"`
	AttemptCount  int        `json:"attemptCount"`
	MaxAttempts   int        `json:"maxAttempts"`
	LastError     *string    `json:"lastError,omitempty"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	SentAt        *time.Time `json:"sentAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt,omitempty"`
}

type listRecordsResponse struct {
	Data []recordResponse `json:"data"`
	Meta listMeta         `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type resendRequest struct {
	FlightID  string `json:"flightId"`
	Recipient string `json:"recipient"`
}

func (h *RecordHandler) ListRecords(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	records, total, err := h.records.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listRecordsResponse{
		Data: toRecordResponses(records),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *RecordHandler) GetRecord(c *fiber.Ctx) error {
	flightID := strings.TrimSpace(c.Params("flightId"))
	recipient := strings.TrimSpace(c.Params("recipient"))

	record, err := h.records.Get(c.Context(), flightID, recipient)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toRecordResponse(record))
}

func (h *RecordHandler) ResendRecord(c *fiber.Ctx) error {
	var req resendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	flightID := strings.TrimSpace(req.FlightID)
	recipient := strings.TrimSpace(req.Recipient)
	if flightID == "" || recipient == "" {
		return toHTTPError(fmt.Errorf("%w: flightId and recipient are required", domain.ErrValidation))
	}

	record, err := h.records.ResetForResend(c.Context(), flightID, recipient)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toRecordResponse(record))
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseRecordStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if flightID := strings.TrimSpace(c.Query("flightId")); flightID != "" {
		params.FlightID = &flightID
	}

	return params, nil
}

func toRecordResponses(records []domain.NotificationRecord) []recordResponse {
	responses := make([]recordResponse, 0, len(records))
	for _, record := range records {
		r := record
		responses = append(responses, toRecordResponse(&r))
	}
	return responses
}

func toRecordResponse(r *domain.NotificationRecord) recordResponse {
	if r == nil {
		return recordResponse{}
	}

	return recordResponse{
		ID:            r.ID,
		FlightID:      r.FlightID,
		Recipient:     r.Recipient,
		Status:        r.Status.String(),
		AttemptCount:  r.AttemptCount,
		MaxAttempts:   r.MaxAttempts,
		LastError:     r.LastError,
		LastAttemptAt: r.LastAttemptAt,
		SentAt:        r.SentAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
