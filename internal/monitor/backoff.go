package monitor

import (
	"context"
	"time"
)

// Backoff configures in-cycle retries after connection failures.
type Backoff struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultBackoff returns 3 attempts with delays of 1s then 2s, capped at 30s.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// Attempts returns the total attempts per cycle, at least 1.
func (b Backoff) Attempts() int {
	if b.MaxAttempts < 1 {
		return 1
	}
	return b.MaxAttempts
}

// Delay returns the wait before retry number n (1-based).
func (b Backoff) Delay(n int) time.Duration {
	delay := b.InitialDelay
	mult := b.Multiplier
	if mult < 1 {
		mult = 1
	}
	for i := 1; i < n; i++ {
		delay = time.Duration(float64(delay) * mult)
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			return b.MaxDelay
		}
	}
	if b.MaxDelay > 0 && delay > b.MaxDelay {
		return b.MaxDelay
	}
	return delay
}

// sleepCtx waits for d or until ctx is done. It returns false if ctx ended
// first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextTick returns the first tick of the schedule start + k*interval that
// is strictly after now. Ticks a slow cycle overran are skipped rather than
// run back to back.
func nextTick(start time.Time, interval time.Duration, now time.Time) time.Time {
	if interval <= 0 {
		return now
	}
	if now.Before(start) {
		return start
	}
	k := now.Sub(start)/interval + 1
	return start.Add(k * interval)
}
