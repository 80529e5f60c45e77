package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentTerminalLimit = 20

// OutreachService owns the enqueue side of the delivery queue and the
// read-only introspection surface.
type OutreachService struct {
	messages repository.MessageRepository
	logger   *zap.Logger
	now      func() time.Time
}

// QueueStatus is the operator-facing snapshot of the queue.
type QueueStatus struct {
	Counts []repository.StatusCount
	Recent []domain.Message
}

func NewOutreachService(messages repository.MessageRepository, logger *zap.Logger) (*OutreachService, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OutreachService{
		messages: messages,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Enqueue accepts a new send intent. Calling it twice with the same
// dedup key is safe: the second call resolves to the first message.
func (s *OutreachService) Enqueue(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.prepareForEnqueue(message); err != nil {
		return nil, err
	}

	if err := s.messages.Create(ctx, message); err != nil {
		existing, resolved, resolveErr := s.resolveDedupConflict(ctx, err, message.DedupKey)
		if resolveErr != nil {
			return nil, resolveErr
		}
		if resolved {
			return existing, nil
		}
		return nil, err
	}

	return message, nil
}

func (s *OutreachService) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: message id is required", domain.ErrValidation)
	}
	return s.messages.GetByID(ctx, strings.TrimSpace(id))
}

func (s *OutreachService) List(ctx context.Context, params repository.ListParams) ([]domain.Message, int64, error) {
	return s.messages.List(ctx, params)
}

// QueueStatus returns per-status counts plus the most recent terminal
// outcomes for operational visibility.
func (s *OutreachService) QueueStatus(ctx context.Context) (*QueueStatus, error) {
	counts, err := s.messages.StatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count messages by status: %w", err)
	}

	recent, err := s.messages.RecentTerminal(ctx, recentTerminalLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent terminal messages: %w", err)
	}

	return &QueueStatus{
		Counts: counts,
		Recent: recent,
	}, nil
}

func (s *OutreachService) prepareForEnqueue(m *domain.Message) error {
	if m == nil {
		return fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	m.Recipient = strings.TrimSpace(m.Recipient)
	m.Category = strings.ToLower(strings.TrimSpace(m.Category))
	m.DedupKey = strings.TrimSpace(m.DedupKey)

	m.ID = strings.TrimSpace(m.ID)
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.DedupKey == "" {
		m.DedupKey = fmt.Sprintf("%s:%s", m.Category, m.Recipient)
	}
	if m.Priority == 0 {
		m.Priority = domain.DefaultPriority
	}
	if m.MaxRetries <= 0 {
		m.MaxRetries = domain.DefaultMaxRetries
	}
	if m.ScheduledFor.IsZero() {
		m.ScheduledFor = s.now().UTC()
	}

	m.Status = domain.StatusQueued
	m.RetryCount = 0
	m.LastError = nil
	m.LeaseExpiresAt = nil
	m.SentAt = nil

	return m.Validate()
}

func (s *OutreachService) resolveDedupConflict(
	ctx context.Context,
	createErr error,
	dedupKey string,
) (*domain.Message, bool, error) {
	if !isUniqueViolationError(createErr) {
		return nil, false, nil
	}

	existing, err := s.messages.GetByDedupKey(ctx, dedupKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing message after dedup conflict: %w", err)
	}
	s.logger.Info("dedup conflict resolved to existing message",
		zap.String("existingId", existing.ID),
		zap.String("dedupKey", dedupKey),
	)
	return existing, true, nil
}

func isUniqueViolationError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
