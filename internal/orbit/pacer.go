package orbit

import (
	"context"
	"time"
)

// DefaultRateHz is the tick frequency the animation is paced at.
const DefaultRateHz = 10

// Pacer caps the tick frequency of a run.
type Pacer interface {
	// Wait blocks until the next tick may run or ctx is cancelled.
	Wait(ctx context.Context) error
	Stop()
}

// RatePacer releases at most one tick per period.
type RatePacer struct {
	ticker *time.Ticker
	period time.Duration
}

// NewPacer returns a RatePacer for hz ticks per second, or an unpaced Pacer when hz ≤ 0.
func NewPacer(hz float64) Pacer {
	if hz <= 0 {
		return Unpaced()
	}
	period := Period(hz)
	return &RatePacer{ticker: time.NewTicker(period), period: period}
}

// Period converts a tick rate into the interval between ticks.
func Period(hz float64) time.Duration {
	if hz <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / hz)
}

func (p *RatePacer) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ticker.C:
		return nil
	}
}

func (p *RatePacer) Stop() { p.ticker.Stop() }

// Period returns the interval between ticks.
func (p *RatePacer) Period() time.Duration { return p.period }

type unpaced struct{}

// Unpaced returns a Pacer that never waits. It still honours cancellation.
func Unpaced() Pacer { return unpaced{} }

func (unpaced) Wait(ctx context.Context) error { return ctx.Err() }
func (unpaced) Stop() {}
