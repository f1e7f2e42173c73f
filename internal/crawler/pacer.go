package crawler

import (
	"context"
	"time"

	"github.com/showdex/showdex/pkg/logger"
)

// rateLogInterval controls how often the pacer reports its running
// request rate.
const rateLogInterval = 50

// Pacer owns the crawl sessions request accounting and enforces the fixed
// delay between sequential calls to the search provider. It is a value
// object threaded through the session rather than global state, so a
// future adaptive implementation (token bucket fed by the providers
// remaining-quota headers) can replace it without touching callers.
type Pacer struct {
	delay    time.Duration
	started  time.Time
	requests int
}

func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{
		delay:   delay,
		started: time.Now(),
	}
}

// Wait accounts for one outbound request and then blocks for the
// configured delay. It returns early (with the context error) if the
// context is cancelled mid-sleep.
func (pacer *Pacer) Wait(ctx context.Context) error {
	pacer.requests++

	if pacer.requests%rateLogInterval == 0 {
		elapsed := time.Since(pacer.started).Minutes()
		if elapsed > 0 {
			log.Emit(logger.INFO, "Progress: %d requests, %.1f/min\n", pacer.requests, float64(pacer.requests)/elapsed)
		}
	}

	if pacer.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(pacer.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Requests returns the number of provider calls accounted for so far.
func (pacer *Pacer) Requests() int {
	return pacer.requests
}

// Elapsed returns the sessions age.
func (pacer *Pacer) Elapsed() time.Duration {
	return time.Since(pacer.started)
}
