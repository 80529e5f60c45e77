package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"github.com/frequencyandform/outreach-pipeline/internal/service"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type OutreachService interface {
	Enqueue(ctx context.Context, m *domain.Message) (*domain.Message, error)
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error)
	QueueStatus(ctx context.Context) (*service.QueueStatus, error)
}

type MessageHandler struct {
	service OutreachService
}

func NewMessageHandler(service OutreachService) (*MessageHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("outreach service is required")
	}
	return &MessageHandler{service: service}, nil
}

func RegisterMessageRoutes(router fiber.Router, service OutreachService) error {
	h, err := NewMessageHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/messages", h.EnqueueMessage)
	v1.Get("/messages/:id", h.GetMessage)
	v1.Get("/messages", h.ListMessages)
	v1.Get("/outreach/status", h.OutreachStatus)

	return nil
}

type enqueueMessageRequest struct {
	Recipient    string     `json:"recipient"`
	Category     string     `json:"category"`
	DedupKey     string     `json:"dedupKey"`
	Priority     *int       `json:"priority,omitempty"`
	Subject      string     `json:"subject"`
	Body         string     `json:"body"`
	ScheduledFor *time.Time `json:"scheduledFor,omitempty"`
	MaxRetries   *int       `json:"maxRetries,omitempty"`
}

type messageResponse struct {
	ID           string     `json:"id"`
	Recipient    string     `json:"recipient"`
	Category     string     `json:"category"`
	DedupKey     string     `json:"dedupKey"`
	Priority     int        `json:"priority"`
	Subject      string     `json:"subject,omitempty"`
	Status       string     `json:"status"`
	RetryCount   int        `json:"retryCount"`
	MaxRetries   int        `json:"maxRetries"`
	LastError    *string    `json:"lastError,omitempty"`
	ScheduledFor time.Time  `json:"scheduledFor"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt,omitempty"`
}

type listMessagesResponse struct {
	Data []messageResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type statusCountItem struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type outreachStatusResponse struct {
	Counts []statusCountItem `json:"counts"`
	Recent []messageResponse `json:"recent"`
}

func (h *MessageHandler) EnqueueMessage(c *fiber.Ctx) error {
	var req enqueueMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	message := domain.Message{
		Recipient: strings.TrimSpace(req.Recipient),
		Category:  strings.TrimSpace(req.Category),
		DedupKey:  strings.TrimSpace(req.DedupKey),
		Subject:   strings.TrimSpace(req.Subject),
		Body:      req.Body,
	}
	if req.Priority != nil {
		message.Priority = *req.Priority
	}
	if req.MaxRetries != nil {
		message.MaxRetries = *req.MaxRetries
	}
	if req.ScheduledFor != nil {
		message.ScheduledFor = req.ScheduledFor.UTC()
	}

	enqueued, err := h.service.Enqueue(c.Context(), &message)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(toMessageResponse(enqueued))
}

func (h *MessageHandler) GetMessage(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	message, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toMessageResponse(message))
}

func (h *MessageHandler) ListMessages(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	messages, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listMessagesResponse{
		Data: toMessageResponses(messages),
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *MessageHandler) OutreachStatus(c *fiber.Ctx) error {
	status, err := h.service.QueueStatus(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	counts := make([]statusCountItem, 0, len(status.Counts))
	for _, count := range status.Counts {
		counts = append(counts, statusCountItem{
			Status: count.Status.String(),
			Count:  count.Count,
		})
	}

	return c.Status(fiber.StatusOK).JSON(outreachStatusResponse{
		Counts: counts,
		Recent: toMessageResponses(status.Recent),
	})
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
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.Status = &status
	}

	if rawCategory := strings.ToLower(strings.TrimSpace(c.Query("category"))); rawCategory != "" {
		params.Category = &rawCategory
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.ListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.ListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toMessageResponses(messages []domain.Message) []messageResponse {
	responses := make([]messageResponse, 0, len(messages))
	for _, message := range messages {
		m := message
		responses = append(responses, toMessageResponse(&m))
	}
	return responses
}

func toMessageResponse(m *domain.Message) messageResponse {
	if m == nil {
		return messageResponse{}
	}

	return messageResponse{
		ID:           m.ID,
		Recipient:    m.Recipient,
		Category:     m.Category,
		DedupKey:     m.DedupKey,
		Priority:     m.Priority,
		Subject:      m.Subject,
		Status:       m.Status.String(),
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		LastError:    m.LastError,
		ScheduledFor: m.ScheduledFor,
		SentAt:       m.SentAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
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
