package service

import (
	"context"
	"fmt"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
	"github.com/frequencyandform/outreach-pipeline/internal/observability"
	"github.com/frequencyandform/outreach-pipeline/internal/provider"
	"github.com/frequencyandform/outreach-pipeline/internal/ratelimit"
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultBatchLimit   = 10
	defaultRetryBackoff = 15 * time.Minute
	defaultLease        = 10 * time.Minute
)

// CooldownChecker is the decision port the processor consults before
// every transport call.
type CooldownChecker interface {
	CanSend(ctx context.Context, recipient, category, dedupKey string) (bool, error)
}

// Processor drains the delivery queue: claim, cooldown check, deliver,
// record outcome. One message's failure never aborts the batch.
type Processor struct {
	messages     repository.MessageRepository
	records      repository.SendRecordRepository
	cooldowns    CooldownChecker
	provider     provider.Provider
	rateLimiter  ratelimit.RateLimiter
	logger       *zap.Logger
	metrics      *observability.Metrics
	retryBackoff time.Duration
	lease        time.Duration
	now          func() time.Time
}

// BatchResult summarizes one ProcessBatch run.
type BatchResult struct {
	Selected int
	Sent     int
	Retried  int
	Failed   int
	Denied   int
	Skipped  int
}

func NewProcessor(
	messages repository.MessageRepository,
	records repository.SendRecordRepository,
	cooldowns CooldownChecker,
	deliveryProvider provider.Provider,
	rateLimiter ratelimit.RateLimiter,
	retryBackoff time.Duration,
	lease time.Duration,
	logger *zap.Logger,
) (*Processor, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if records == nil {
		return nil, fmt.Errorf("send record repository is required")
	}
	if cooldowns == nil {
		return nil, fmt.Errorf("cooldown checker is required")
	}
	if deliveryProvider == nil {
		return nil, fmt.Errorf("delivery provider is required")
	}
	if rateLimiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if retryBackoff <= 0 {
		retryBackoff = defaultRetryBackoff
	}
	if lease <= 0 {
		lease = defaultLease
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		messages:     messages,
		records:      records,
		cooldowns:    cooldowns,
		provider:     deliveryProvider,
		rateLimiter:  rateLimiter,
		logger:       logger,
		retryBackoff: retryBackoff,
		lease:        lease,
		now:          time.Now,
	}, nil
}

func (p *Processor) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// ProcessBatch handles up to limit due messages in priority-then-FIFO
// order. Messages are processed sequentially; the per-category rate
// limiter spaces out transport calls.
func (p *Processor) ProcessBatch(ctx context.Context, limit int) (*BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = defaultBatchLimit
	}

	due, err := p.messages.GetDueBatch(ctx, p.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch due messages: %w", err)
	}

	result := &BatchResult{Selected: len(due)}
	for i := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		message := due[i]
		if err := p.processOne(ctx, &message, result); err != nil {
			p.logger.Error("failed to process message",
				zap.String("messageId", message.ID),
				zap.String("category", message.Category),
				zap.Error(err),
			)
		}
	}

	return result, nil
}

func (p *Processor) processOne(ctx context.Context, message *domain.Message, result *BatchResult) error {
	claimed, err := p.messages.ClaimForProcessing(ctx, message.ID, p.now().Add(p.lease))
	if err != nil {
		return fmt.Errorf("failed to claim message: %w", err)
	}
	if !claimed {
		// Another processor run owns it.
		result.Skipped++
		return nil
	}

	allowed, err := p.cooldowns.CanSend(ctx, message.Recipient, message.Category, message.DedupKey)
	if err != nil {
		// Leave the message claimed for the sweeper rather than guess;
		// a decision error is not a denial.
		return fmt.Errorf("cooldown check failed: %w", err)
	}
	if !allowed {
		if err := p.messages.MarkFailed(ctx, message.ID, domain.FailureReasonCooldown); err != nil {
			return fmt.Errorf("failed to mark cooldown denial: %w", err)
		}
		result.Denied++
		if p.metrics != nil {
			p.metrics.IncCooldownDenied(message.Category)
			p.metrics.IncMessageFailed(message.Category, domain.FailureReasonCooldown)
		}
		p.logger.Info("send denied by cooldown policy",
			zap.String("messageId", message.ID),
			zap.String("category", message.Category),
			zap.String("dedupKey", message.DedupKey),
		)
		return nil
	}

	if err := p.rateLimiter.Wait(ctx, message.Category); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	sendStart := p.now()
	_, deliverErr := p.provider.Deliver(ctx, *message)
	if p.metrics != nil {
		p.metrics.ObserveSendDuration(message.Category, p.now().Sub(sendStart))
	}

	if deliverErr == nil {
		return p.finishSent(ctx, message, result)
	}
	return p.finishFailedAttempt(ctx, message, deliverErr, result)
}

func (p *Processor) finishSent(ctx context.Context, message *domain.Message, result *BatchResult) error {
	sentAt := p.now().UTC()
	if err := p.messages.MarkSent(ctx, message.ID, sentAt); err != nil {
		return fmt.Errorf("failed to mark message sent: %w", err)
	}
	if err := p.appendRecord(ctx, message, domain.OutcomeSent); err != nil {
		return err
	}

	result.Sent++
	if p.metrics != nil {
		p.metrics.IncMessageSent(message.Category)
	}
	p.logger.Info("message sent",
		zap.String("messageId", message.ID),
		zap.String("category", message.Category),
	)
	return nil
}

func (p *Processor) finishFailedAttempt(ctx context.Context, message *domain.Message, deliverErr error, result *BatchResult) error {
	reason := deliverErr.Error()

	if !message.RetriesExhausted() {
		nextAttemptAt := p.now().Add(p.retryBackoff)
		if err := p.messages.ScheduleRetry(ctx, message.ID, nextAttemptAt, reason); err != nil {
			return fmt.Errorf("failed to schedule retry: %w", err)
		}
		result.Retried++
		if p.metrics != nil {
			p.metrics.IncRetryScheduled(message.Category)
		}
		p.logger.Warn("delivery failed, retry scheduled",
			zap.String("messageId", message.ID),
			zap.String("category", message.Category),
			zap.Int("retryCount", message.RetryCount+1),
			zap.Time("nextAttemptAt", nextAttemptAt),
			zap.Error(deliverErr),
		)
		return nil
	}

	if err := p.messages.MarkFailed(ctx, message.ID, reason); err != nil {
		return fmt.Errorf("failed to mark message failed: %w", err)
	}
	if err := p.appendRecord(ctx, message, domain.OutcomeFailed); err != nil {
		return err
	}

	result.Failed++
	if p.metrics != nil {
		failureKind := "permanent_error"
		if provider.IsTransient(deliverErr) {
			failureKind = "retry_exhausted"
		}
		p.metrics.IncMessageFailed(message.Category, failureKind)
	}
	p.logger.Error("delivery permanently failed",
		zap.String("messageId", message.ID),
		zap.String("category", message.Category),
		zap.Int("retryCount", message.RetryCount),
		zap.Error(deliverErr),
	)
	return nil
}

func (p *Processor) appendRecord(ctx context.Context, message *domain.Message, outcome domain.Outcome) error {
	record := &domain.SendRecord{
		ID:        uuid.NewString(),
		Recipient: message.Recipient,
		Category:  message.Category,
		DedupKey:  message.DedupKey,
		Outcome:   outcome,
		CreatedAt: p.now().UTC(),
	}
	if err := p.records.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to append send record: %w", err)
	}
	return nil
}
