package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// jobClaimTTL outlives an hour window so a claimed window stays claimed
// for its full duration even across scheduler restarts.
const jobClaimTTL = 70 * time.Minute

func jobClaimKey(job, window string) string {
	return fmt.Sprintf("jobclaim:%s:%s", job, window)
}

// JobLock hands out at-most-once claims on (job, due-window) pairs so
// that several scheduler instances sharing one Redis never double-fire
// a job for the same window.
type JobLock struct {
	client *goredis.Client
}

func NewJobLock(client *goredis.Client) (*JobLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &JobLock{client: client}, nil
}

// Claim returns true if this caller won the window; SetNX makes the
// claim atomic across instances.
func (l *JobLock) Claim(ctx context.Context, job, window string) (bool, error) {
	if l == nil || l.client == nil {
		return false, fmt.Errorf("job lock is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ok, err := l.client.SetNX(ctx, jobClaimKey(job, window), "claimed", jobClaimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim job window: %w", err)
	}
	return ok, nil
}
