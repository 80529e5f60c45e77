package service

import (
	"context"
	"fmt"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/observability"
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"go.uber.org/zap"
)

const defaultSweepInterval = 5 * time.Minute

// LeaseSweeper periodically requeues messages whose processing lease
// expired, so a crashed processor run never strands a message in
// PROCESSING.
type LeaseSweeper struct {
	messages repository.MessageRepository
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	now      func() time.Time
}

func NewLeaseSweeper(
	messages repository.MessageRepository,
	interval time.Duration,
	logger *zap.Logger,
) (*LeaseSweeper, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LeaseSweeper{
		messages: messages,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}, nil
}

func (s *LeaseSweeper) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *LeaseSweeper) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Sweep immediately so leases left over from a previous crash do
	// not wait for the first ticker edge.
	if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("lease sweeper initial sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("lease sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce requeues all messages with an expired processing lease and
// returns how many were recovered.
func (s *LeaseSweeper) SweepOnce(ctx context.Context) (int64, error) {
	requeued, err := s.messages.RequeueExpiredLeases(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to requeue expired leases: %w", err)
	}

	if requeued > 0 {
		s.logger.Warn("requeued messages with expired leases", zap.Int64("count", requeued))
		if s.metrics != nil {
			s.metrics.AddLeasesRequeued(requeued)
		}
	}

	return requeued, nil
}
