package syncengine

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultProgressInterval is the minimum spacing of throttled progress events.
const DefaultProgressInterval = 100 * time.Millisecond

// progressThrottle limits how often progress reaches subscribers. Callers serialize
// access.
type progressThrottle struct {
	clock    clockwork.Clock
	interval time.Duration
	last     time.Time
	primed   bool
}

func newProgressThrottle(clock clockwork.Clock, interval time.Duration) *progressThrottle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	return &progressThrottle{clock: clock, interval: interval}
}

// allow reports whether an update may go out now. A forced update always goes
// out and restarts the interval.
func (t *progressThrottle) allow(force bool) bool {
	now := t.clock.Now()

	if !force && t.primed && now.Sub(t.last) < t.interval {
		return false
	}

	t.last = now
	t.primed = true

	return true
}
