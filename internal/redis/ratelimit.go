package redis

import (
	"context"
	"fmt"
	"time"
)

// Quota is a caller's standing in the current window.
type Quota struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter caps how many questions a caller may ask per fixed
// one-minute window. Counter keys are stamped with the window start,
// so a counter whose expiry is delayed can never bleed into the next
// window.
type RateLimiter struct {
	client *Client
	window time.Duration
	limit  int64
	now    func() time.Time
}

// NewRateLimiter builds a limiter allowing requestsPerMinute plus a
// burst headroom per caller per minute.
func NewRateLimiter(client *Client, requestsPerMinute, burst int) *RateLimiter {
	return &RateLimiter{
		client: client,
		window: time.Minute,
		limit:  int64(requestsPerMinute + burst),
		now:    time.Now,
	}
}

// Allow consumes one request from the caller's budget and reports what
// is left of it.
func (r *RateLimiter) Allow(ctx context.Context, caller string) (Quota, error) {
	windowStart := r.now().Truncate(r.window)
	key := fmt.Sprintf("gateway:ask:%s:%d", caller, windowStart.Unix())

	pipe := r.client.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	// Stamped keys are garbage once the window rolls over
	pipe.Expire(ctx, key, 2*r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Quota{}, fmt.Errorf("failed to consume rate limit budget: %w", err)
	}

	count := incr.Val()
	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Quota{
		Allowed:   count <= r.limit,
		Remaining: int(remaining),
		ResetAt:   windowStart.Add(r.window),
	}, nil
}
