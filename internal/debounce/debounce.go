// Package debounce coalesces bursts of triggers into a single call.
package debounce

import (
	"sync"
	"time"

	"github.com/goliatone/go-formsync/internal/clock"
)

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock overrides the clock used to schedule calls.
func WithClock(c clock.Clock) Option {
	return func(d *Debouncer) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithMaxWait caps how long a continuous burst can defer the call. Zero
// disables the cap.
func WithMaxWait(max time.Duration) Option {
	return func(d *Debouncer) {
		if max >= 0 {
			d.maxWait = max
		}
	}
}

// Debouncer runs fn once the triggers have been quiet for delay. Every
// Trigger replaces the pending schedule, so only the latest one fires.
type Debouncer struct {
	mu      sync.Mutex
	clock   clock.Clock
	delay   time.Duration
	maxWait time.Duration
	fn      func()

	timer      clock.Timer
	generation uint64
	pending    bool
	burstStart time.Time
	stopped    bool
}

// New constructs a Debouncer calling fn after delay.
func New(delay time.Duration, fn func(), options ...Option) *Debouncer {
	d := &Debouncer{
		clock: clock.Real(),
		delay: delay,
		fn:    fn,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(d)
	}
	return d
}

// Trigger cancels the pending call and schedules a new one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	now := d.clock.Now()
	if !d.pending {
		d.pending = true
		d.burstStart = now
	}

	wait := d.delay
	if d.maxWait > 0 {
		remaining := d.burstStart.Add(d.maxWait).Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		if remaining < wait {
			wait = remaining
		}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.timer = d.clock.AfterFunc(wait, func() { d.fire(gen) })
}

// Cancel drops the pending call, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop cancels the pending call and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	d.pending = false
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.generation || d.stopped || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}
