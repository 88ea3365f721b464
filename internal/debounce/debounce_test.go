package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/goliatone/go-formsync/internal/clock"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	c := clock.NewFake(epoch)
	var firedAt []time.Duration
	d := New(600*time.Millisecond, func() {
		firedAt = append(firedAt, c.Now().Sub(epoch))
	}, WithClock(c))

	d.Trigger()
	c.Advance(100 * time.Millisecond)
	d.Trigger()
	c.Advance(100 * time.Millisecond)
	d.Trigger()

	c.Advance(599 * time.Millisecond)
	if len(firedAt) != 0 {
		t.Fatalf("fired too early: %v", firedAt)
	}
	c.Advance(2 * time.Second)

	if len(firedAt) != 1 {
		t.Fatalf("expected exactly one call, got %d", len(firedAt))
	}
	if firedAt[0] != 800*time.Millisecond {
		t.Fatalf("expected call at 800ms, got %s", firedAt[0])
	}
}

func TestDebouncer_MaxWaitForcesCall(t *testing.T) {
	c := clock.NewFake(epoch)
	var firedAt []time.Duration
	d := New(600*time.Millisecond, func() {
		firedAt = append(firedAt, c.Now().Sub(epoch))
	}, WithClock(c), WithMaxWait(time.Second))

	for i := 0; i < 15; i++ {
		d.Trigger()
		c.Advance(100 * time.Millisecond)
	}
	c.Advance(time.Second)

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(firedAt) != len(want) {
		t.Fatalf("expected calls at %v, got %v", want, firedAt)
	}
	for i := range want {
		if firedAt[i] != want[i] {
			t.Fatalf("expected calls at %v, got %v", want, firedAt)
		}
	}
}

func TestDebouncer_WithoutMaxWaitDefersIndefinitely(t *testing.T) {
	c := clock.NewFake(epoch)
	calls := 0
	d := New(600*time.Millisecond, func() { calls++ }, WithClock(c), WithMaxWait(0))

	for i := 0; i < 100; i++ {
		d.Trigger()
		c.Advance(500 * time.Millisecond)
	}
	if calls != 0 {
		t.Fatalf("expected no call during continuous input, got %d", calls)
	}
	c.Advance(time.Second)
	if calls != 1 {
		t.Fatalf("expected one call after quiet period, got %d", calls)
	}
}

func TestDebouncer_CancelAndStop(t *testing.T) {
	c := clock.NewFake(epoch)
	calls := 0
	d := New(600*time.Millisecond, func() { calls++ }, WithClock(c))

	d.Trigger()
	if !d.Pending() {
		t.Fatalf("expected pending call")
	}
	d.Cancel()
	c.Advance(time.Second)
	if calls != 0 || d.Pending() {
		t.Fatalf("cancelled call ran")
	}

	d.Stop()
	d.Trigger()
	c.Advance(time.Second)
	if calls != 0 {
		t.Fatalf("stopped debouncer ran")
	}
}

func TestDebouncer_RealClockStopLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	done := make(chan struct{})
	d := New(5*time.Millisecond, func() {
		calls.Add(1)
		close(done)
	})
	d.Trigger()
	d.Trigger()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced call never ran")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}

	d.Trigger()
	d.Stop()
}
