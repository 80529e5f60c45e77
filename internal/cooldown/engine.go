package cooldown

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"go.uber.org/zap"
)

const dailyCapWindow = 24 * time.Hour

// Engine answers "may this be sent now?" against persisted send
// history and the per-category policy table. It only reads; the
// delivery processor writes the SendRecord after a successful send.
type Engine struct {
	records repository.SendRecordRepository
	rules   *Rules
	strict  bool
	logger  *zap.Logger
	now     func() time.Time
}

func NewEngine(records repository.SendRecordRepository, rules *Rules, strict bool, logger *zap.Logger) (*Engine, error) {
	if records == nil {
		return nil, fmt.Errorf("send record repository is required")
	}
	if rules == nil {
		rules = NewRules(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		records: records,
		rules:   rules,
		strict:  strict,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// CanSend decides whether a message in the given category may go to
// the recipient now. The dedup key, when present, identifies the exact
// send intent and takes precedence over the recipient+category lookup.
func (e *Engine) CanSend(ctx context.Context, recipient, category, dedupKey string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	recipient = strings.TrimSpace(recipient)
	category = strings.TrimSpace(category)
	if recipient == "" || category == "" {
		return false, fmt.Errorf("%w: recipient and category are required", domain.ErrValidation)
	}

	rule, ok := e.rules.Lookup(category)
	if !ok {
		if e.strict {
			e.logger.Warn("no cooldown rule configured, denying send",
				zap.String("category", category),
			)
			return false, nil
		}
		// Fail open so an unconfigured category does not block sends.
		e.logger.Warn("no cooldown rule configured, allowing send",
			zap.String("category", category),
		)
		return true, nil
	}

	if rule.AllowDuplicates {
		return true, nil
	}

	allowed, err := e.cooldownElapsed(ctx, rule, recipient, category, dedupKey)
	if err != nil {
		return false, err
	}

	if rule.MaxPerDay > 0 {
		count, err := e.records.CountSince(ctx, recipient, category, e.now().Add(-dailyCapWindow))
		if err != nil {
			return false, fmt.Errorf("failed to count recent sends: %w", err)
		}
		if count >= int64(rule.MaxPerDay) {
			return false, nil
		}
	}

	return allowed, nil
}

func (e *Engine) cooldownElapsed(ctx context.Context, rule domain.CooldownRule, recipient, category, dedupKey string) (bool, error) {
	last, err := e.latestRecord(ctx, recipient, category, dedupKey)
	if errors.Is(err, domain.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query send history: %w", err)
	}

	elapsed := e.now().Sub(last.CreatedAt)
	return elapsed >= time.Duration(rule.CooldownHours)*time.Hour, nil
}

func (e *Engine) latestRecord(ctx context.Context, recipient, category, dedupKey string) (*domain.SendRecord, error) {
	if strings.TrimSpace(dedupKey) != "" {
		record, err := e.records.LatestByDedupKey(ctx, dedupKey)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	return e.records.LatestByRecipientCategory(ctx, recipient, category)
}
