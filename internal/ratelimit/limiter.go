package ratelimit

import "context"

// RateLimiter throttles outbound gateway calls per scope. It doubles as
// admission control for the delivery gateway across concurrent pipeline
// instances.
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}
