// ABOUTME: Trailing-edge call throttler
// ABOUTME: Coalesces bursts of calls into at most one invocation per interval
package throttle

import (
	"sync"
	"time"
)

// Throttler rate-limits a stream of calls to at most one underlying
// invocation per interval. Calls arriving while an invocation is pending
// replace the pending one, so the invocation that eventually fires always
// runs the most recent call.
type Throttler struct {
	mu       sync.Mutex
	interval time.Duration
	latest   func()
	pending  bool
	timer    *time.Timer
}

// New creates a throttler with the given minimum interval between invocations
func New(interval time.Duration) *Throttler {
	return &Throttler{interval: interval}
}

// Do schedules f to run after the interval. If an invocation is already
// scheduled, f supersedes it and the existing timer is reused.
func (t *Throttler) Do(f func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.latest = f
	if t.pending {
		return
	}
	t.pending = true
	t.timer = time.AfterFunc(t.interval, t.fire)
}

func (t *Throttler) fire() {
	t.mu.Lock()
	f := t.latest
	t.latest = nil
	t.pending = false
	t.mu.Unlock()

	if f != nil {
		f()
	}
}

// Stop cancels any pending invocation
func (t *Throttler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.latest = nil
	t.pending = false
}
