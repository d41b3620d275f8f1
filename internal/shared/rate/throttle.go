// Package rate paces event streams with a leaky bucket.
package rate

import (
	"context"
	"go.uber.org/ratelimit"
)

// Throttle lets at most limit events per second through.
type Throttle struct {
	l     ratelimit.Limiter
	limit int
}

// NewThrottle creates a throttle; a non-positive limit means unlimited.
func NewThrottle(limit int) *Throttle {
	if limit <= 0 {
		return &Throttle{l: ratelimit.NewUnlimited()}
	}
	return &Throttle{l: ratelimit.New(limit, ratelimit.WithSlack(limit/10)), limit: limit}
}

// Wait blocks until the next event may pass. It returns ctx.Err() if ctx is
// done before or while waiting.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.l.Take()
	return ctx.Err()
}

// Limit returns the configured events per second, 0 when unlimited.
func (t *Throttle) Limit() int {
	return t.limit
}
