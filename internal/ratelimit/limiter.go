package ratelimit

import "context"

// RateLimiter paces outbound sends per message category.
type RateLimiter interface {
	Allow(ctx context.Context, category string) (bool, error)
	Wait(ctx context.Context, category string) error
}
