// Package throttle paces outbound notification sends.
package throttle

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttler serializes sends and enforces two independent policies: a fixed
// minimum delay between consecutive sends and a cap on sends per one-minute
// window. Once the cap is hit, Acquire blocks until the window rolls over and
// the counter resets. One Throttler instance is shared by every delivery
// driver so the per-minute count stays accurate.
type Throttler struct {
	mu      sync.Mutex
	spacing *rate.Limiter
	cap     int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	windowStart time.Time
	count       int
}

// New creates a Throttler with the wall clock.
func New(minGap time.Duration, perMinute int) *Throttler {
	return NewWithClock(minGap, perMinute, time.Now, sleepCtx)
}

// NewWithClock creates a Throttler with an injected clock and sleeper
// (useful for testing).
func NewWithClock(minGap time.Duration, perMinute int, now func() time.Time, sleep func(context.Context, time.Duration) error) *Throttler {
	spacing := rate.NewLimiter(rate.Inf, 1)
	if minGap > 0 {
		spacing = rate.NewLimiter(rate.Every(minGap), 1)
	}
	return &Throttler{
		spacing: spacing,
		cap:     perMinute,
		now:     now,
		sleep:   sleep,
	}
}

// Acquire blocks until a send is allowed under both policies, or until ctx is
// cancelled. The mutex is held across any waiting so sends stay serialized.
func (t *Throttler) Acquire(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	res := t.spacing.ReserveN(now, 1)
	if d := res.DelayFrom(now); d > 0 {
		if err := t.sleep(ctx, d); err != nil {
			res.CancelAt(now)
			return err
		}
		now = t.now()
	}

	if t.windowStart.IsZero() || now.Sub(t.windowStart) >= time.Minute {
		t.windowStart = now
		t.count = 0
	}
	if t.cap > 0 && t.count >= t.cap {
		wait := t.windowStart.Add(time.Minute).Sub(now)
		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
		t.windowStart = t.now()
		t.count = 0
	}
	t.count++
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
