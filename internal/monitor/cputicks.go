package monitor

import (
	"math"
	"time"
)

// ticksPerSecond is the kernel clock rate the appliance reports ticks in.
const ticksPerSecond = 100

// tickTracker derives per-process CPU percentages from cumulative tick
// counters across consecutive cycles.
type tickTracker struct {
	prev   map[int]int64
	prevAt time.Time
}

func newTickTracker() *tickTracker {
	return &tickTracker{prev: make(map[int]int64)}
}

// primed reports whether a previous sample exists.
func (t *tickTracker) primed() bool {
	return !t.prevAt.IsZero()
}

// apply fills CPUPercent for processes that reported ticks but no
// percentage, then records the current ticks. Processes seen for the first
// time are left without a percentage. A reported percentage always wins.
func (t *tickTracker) apply(procs []ProcessSample, cores int, at time.Time) {
	if cores < 1 {
		cores = 1
	}
	elapsed := at.Sub(t.prevAt).Seconds()
	usable := t.primed() && elapsed > 0

	current := make(map[int]int64, len(procs))
	for i := range procs {
		p := &procs[i]
		if !p.HasTicks {
			continue
		}
		current[p.PID] = p.CPUTicks

		if p.CPUPercent != nil || !usable {
			continue
		}
		before, ok := t.prev[p.PID]
		if !ok || p.CPUTicks < before {
			// New process, or the PID was reused.
			continue
		}
		pct := float64(p.CPUTicks-before) / (elapsed * ticksPerSecond * float64(cores)) * 100
		pct = math.Round(math.Min(pct, 100)*10) / 10
		p.CPUPercent = &pct
	}

	t.prev = current
	t.prevAt = at
}
