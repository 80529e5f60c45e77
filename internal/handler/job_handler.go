package handler

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/frequencyandform/outreach-pipeline/internal/service"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BatchProcessor runs one drain pass over the delivery queue.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, limit int) (*service.BatchResult, error)
}

// LeaseRecoverer requeues messages stuck with an expired processing lease.
type LeaseRecoverer interface {
	SweepOnce(ctx context.Context) (int64, error)
}

// JobHandler exposes the endpoints the scheduler invokes. Every route is
// guarded by the shared cron secret; unauthorized calls are rejected
// before any queue work happens.
type JobHandler struct {
	processor  BatchProcessor
	sweeper    LeaseRecoverer
	secret     string
	batchLimit int
	logger     *zap.Logger
}

func NewJobHandler(
	processor BatchProcessor,
	sweeper LeaseRecoverer,
	secret string,
	batchLimit int,
	logger *zap.Logger,
) (*JobHandler, error) {
	if processor == nil {
		return nil, fmt.Errorf("batch processor is required")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("lease recoverer is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("cron secret is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &JobHandler{
		processor:  processor,
		sweeper:    sweeper,
		secret:     secret,
		batchLimit: batchLimit,
		logger:     logger,
	}, nil
}

func RegisterJobRoutes(
	router fiber.Router,
	processor BatchProcessor,
	sweeper LeaseRecoverer,
	secret string,
	batchLimit int,
	logger *zap.Logger,
) error {
	h, err := NewJobHandler(processor, sweeper, secret, batchLimit, logger)
	if err != nil {
		return err
	}

	jobs := router.Group("/v1/jobs", h.requireSecret)
	jobs.Post("/process-queue", h.ProcessQueue)
	jobs.Post("/requeue-stuck", h.RequeueStuck)

	return nil
}

type processQueueResponse struct {
	Selected int `json:"selected"`
	Sent     int `json:"sent"`
	Retried  int `json:"retried"`
	Failed   int `json:"failed"`
	Denied   int `json:"denied"`
	Skipped  int `json:"skipped"`
}

type requeueStuckResponse struct {
	Requeued int64 `json:"requeued"`
}

func (h *JobHandler) requireSecret(c *fiber.Ctx) error {
	provided := strings.TrimSpace(c.Get("X-Cron-Secret"))
	if provided == "" {
		provided = strings.TrimSpace(c.Query("secret"))
	}

	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		h.logger.Warn("rejected job invocation with invalid secret",
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or missing cron secret")
	}

	return c.Next()
}

func (h *JobHandler) ProcessQueue(c *fiber.Ctx) error {
	result, err := h.processor.ProcessBatch(c.Context(), h.batchLimit)
	if err != nil {
		return toHTTPError(err)
	}

	h.logger.Info("queue batch processed",
		zap.Int("selected", result.Selected),
		zap.Int("sent", result.Sent),
		zap.Int("retried", result.Retried),
		zap.Int("failed", result.Failed),
		zap.Int("denied", result.Denied),
		zap.Int("skipped", result.Skipped),
	)

	return c.Status(fiber.StatusOK).JSON(processQueueResponse{
		Selected: result.Selected,
		Sent:     result.Sent,
		Retried:  result.Retried,
		Failed:   result.Failed,
		Denied:   result.Denied,
		Skipped:  result.Skipped,
	})
}

func (h *JobHandler) RequeueStuck(c *fiber.Ctx) error {
	requeued, err := h.sweeper.SweepOnce(c.Context())
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(requeueStuckResponse{Requeued: requeued})
}
