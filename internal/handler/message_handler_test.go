package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"github.com/frequencyandform/outreach-pipeline/internal/service"
	"github.com/frequencyandform/outreach-pipeline/internal/transport"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type fakeOutreachService struct {
	enqueueFn     func(ctx context.Context, m *domain.Message) (*domain.Message, error)
	getByIDFn     func(ctx context.Context, id string) (*domain.Message, error)
	listFn        func(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error)
	queueStatusFn func(ctx context.Context) (*service.QueueStatus, error)
}

func (f *fakeOutreachService) Enqueue(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	if f.enqueueFn != nil {
		return f.enqueueFn(ctx, m)
	}
	return m, nil
}

func (f *fakeOutreachService) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOutreachService) List(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, 0, nil
}

func (f *fakeOutreachService) QueueStatus(ctx context.Context) (*service.QueueStatus, error) {
	if f.queueStatusFn != nil {
		return f.queueStatusFn(ctx)
	}
	return &service.QueueStatus{}, nil
}

func newMessageTestApp(t *testing.T, svc OutreachService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(zap.NewNop())})
	if err := RegisterMessageRoutes(app, svc); err != nil {
		t.Fatalf("RegisterMessageRoutes() error = %v", err)
	}
	return app
}

func TestEnqueueMessageAccepted(t *testing.T) {
	t.Parallel()

	var gotMessage *domain.Message
	svc := &fakeOutreachService{
		enqueueFn: func(ctx context.Context, m *domain.Message) (*domain.Message, error) {
			gotMessage = m
			m.ID = "generated-id"
			m.Status = domain.StatusQueued
			m.ScheduledFor = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
			return m, nil
		},
	}
	app := newMessageTestApp(t, svc)

	payload := `{"recipient":"buyer@example.com","category":"partner_outreach","priority":8,"subject":"hi","body":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var body messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.ID != "generated-id" {
		t.Fatalf("id = %q, want generated-id", body.ID)
	}
	if body.Status != "QUEUED" {
		t.Fatalf("status = %q, want QUEUED", body.Status)
	}

	if gotMessage == nil {
		t.Fatal("service should receive the message")
	}
	if gotMessage.Priority != 8 {
		t.Fatalf("priority = %d, want 8", gotMessage.Priority)
	}
}

func TestEnqueueMessageValidationError(t *testing.T) {
	t.Parallel()

	svc := &fakeOutreachService{
		enqueueFn: func(ctx context.Context, m *domain.Message) (*domain.Message, error) {
			return nil, domain.ErrValidation
		},
	}
	app := newMessageTestApp(t, svc)

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	t.Parallel()

	app := newMessageTestApp(t, &fakeOutreachService{})

	req := httptest.NewRequest(http.MethodGet, "/v1/messages/unknown-id", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListMessagesParsesFilters(t *testing.T) {
	t.Parallel()

	var gotParams repository.ListParams
	svc := &fakeOutreachService{
		listFn: func(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error) {
			gotParams = params
			return []domain.Message{}, 0, nil
		},
	}
	app := newMessageTestApp(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/messages?status=queued&category=Newsletter&page=2&pageSize=25", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if gotParams.Status == nil || *gotParams.Status != domain.StatusQueued {
		t.Fatalf("status filter = %v, want QUEUED", gotParams.Status)
	}
	if gotParams.Category == nil || *gotParams.Category != "newsletter" {
		t.Fatalf("category filter = %v, want newsletter", gotParams.Category)
	}
	if gotParams.Page != 2 || gotParams.PageSize != 25 {
		t.Fatalf("pagination = %d/%d, want 2/25", gotParams.Page, gotParams.PageSize)
	}
}

func TestListMessagesRejectsInvalidFilters(t *testing.T) {
	t.Parallel()

	app := newMessageTestApp(t, &fakeOutreachService{})

	for _, target := range []string{
		"/v1/messages?status=SHIPPED",
		"/v1/messages?page=0",
		"/v1/messages?pageSize=500",
		"/v1/messages?from=not-a-time",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test(%s) error = %v", target, err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s status = %d, want 400", target, resp.StatusCode)
		}
	}
}

func TestOutreachStatus(t *testing.T) {
	t.Parallel()

	lastError := "cooldown"
	svc := &fakeOutreachService{
		queueStatusFn: func(ctx context.Context) (*service.QueueStatus, error) {
			return &service.QueueStatus{
				Counts: []repository.StatusCount{
					{Status: domain.StatusQueued, Count: 4},
					{Status: domain.StatusFailed, Count: 1},
				},
				Recent: []domain.Message{
					{ID: "m9", Status: domain.StatusFailed, LastError: &lastError},
				},
			}, nil
		},
	}
	app := newMessageTestApp(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/outreach/status", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body outreachStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Counts) != 2 {
		t.Fatalf("counts = %d, want 2", len(body.Counts))
	}
	if len(body.Recent) != 1 || body.Recent[0].ID != "m9" {
		t.Fatalf("recent = %v, want [m9]", body.Recent)
	}
	if body.Recent[0].LastError == nil || *body.Recent[0].LastError != "cooldown" {
		t.Fatalf("lastError = %v, want cooldown", body.Recent[0].LastError)
	}
}
