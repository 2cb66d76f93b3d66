package crawl

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultPaceInterval is the minimum delay between consecutive per-video
// fetches.
const DefaultPaceInterval = 2 * time.Second

// Pacer enforces a minimum spacing between per-video operations. It is a
// blocking wait on the single crawl goroutine with no bursts and no backoff.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer with the given minimum interval; non-positive
// intervals fall back to DefaultPaceInterval. The first wait never blocks.
func NewPacer(interval time.Duration) *Pacer {
	if interval <= 0 {
		interval = DefaultPaceInterval
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Pace blocks until the interval since the previous call has elapsed, or the
// context is cancelled.
func (p *Pacer) Pace(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
