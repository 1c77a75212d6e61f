package scrape

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out requests to the provider.
type Pacer interface {
	Wait(ctx context.Context) error
}

// RatePacer is a token bucket with a burst of one: the first Wait returns
// immediately and each following Wait returns no sooner than interval after
// the previous one.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer allowing one request per interval.
// A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *RatePacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RatePacer{limiter: rate.NewLimiter(limit, 1)}
}

func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
