package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/domain"
	"github.com/frequencyandform/outreach-pipeline/internal/observability"
	"go.uber.org/zap"
)

const defaultTickInterval = time.Minute

// WindowClaimer grants at-most-once claims on (job, window) pairs
// across scheduler instances.
type WindowClaimer interface {
	Claim(ctx context.Context, job, window string) (bool, error)
}

// Scheduler evaluates the static job table against wall-clock time on
// every tick and fires due jobs sequentially in table order. Handler
// failures are logged and never abort the rest of the tick.
type Scheduler struct {
	jobs     []domain.ScheduledJob
	invoker  Invoker
	claims   WindowClaimer
	logger   *zap.Logger
	metrics  *observability.Metrics
	interval time.Duration
	now      func() time.Time
}

func NewScheduler(
	jobs []domain.ScheduledJob,
	invoker Invoker,
	claims WindowClaimer,
	interval time.Duration,
	logger *zap.Logger,
) (*Scheduler, error) {
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	if claims == nil {
		return nil, fmt.Errorf("window claimer is required")
	}
	if interval <= 0 {
		interval = defaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		jobs:     jobs,
		invoker:  invoker,
		claims:   claims,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}, nil
}

func (s *Scheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("scheduler initial tick failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("scheduler tick failed", zap.Error(err))
			}
		}
	}
}

// Tick fires every due job at most once for the current hour window.
// A window missed entirely (process down) is skipped, not backfilled.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()
	window := WindowKey(now)

	for _, job := range DueJobs(s.jobs, now) {
		claimed, err := s.claims.Claim(ctx, job.Name, window)
		if err != nil {
			s.logger.Error("failed to claim job window",
				zap.String("job", job.Name),
				zap.String("window", window),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}

		if err := s.invoker.Invoke(ctx, job); err != nil {
			s.logger.Error("job invocation failed",
				zap.String("job", job.Name),
				zap.String("endpoint", job.Endpoint),
				zap.Error(err),
			)
			if s.metrics != nil {
				s.metrics.IncJobInvocation(job.Name, "error")
			}
			continue
		}

		s.logger.Info("job invoked",
			zap.String("job", job.Name),
			zap.String("window", window),
		)
		if s.metrics != nil {
			s.metrics.IncJobInvocation(job.Name, "ok")
		}
	}

	return nil
}
