package interview

import (
	"context"
	"testing"
	"time"
)

func newTestTimer(budgetSeconds int) *Timer {
	t := NewTimer(budgetSeconds)
	t.interval = time.Millisecond
	return t
}

func TestTimerTicksAndExpires(t *testing.T) {
	tm := newTestTimer(3)
	tm.Start(context.Background())

	var expiries int
	last := 3
	for ev := range tm.Events() {
		if ev.Expired {
			expiries++
			if ev.Remaining != 0 {
				t.Errorf("expiry Remaining = %d, want 0", ev.Remaining)
			}
			continue
		}
		if ev.Remaining >= last {
			t.Errorf("tick Remaining = %d, should decrease from %d", ev.Remaining, last)
		}
		last = ev.Remaining
	}

	if expiries != 1 {
		t.Errorf("expiries = %d, want exactly 1", expiries)
	}
}

func TestTimerCancelSuppressesExpiry(t *testing.T) {
	tm := newTestTimer(1000)
	tm.Start(context.Background())

	time.Sleep(5 * time.Millisecond)
	tm.Cancel()

	for ev := range tm.Events() {
		if ev.Expired {
			t.Error("cancelled timer should not expire")
		}
	}
}

func TestTimerCancelIdempotent(t *testing.T) {
	tm := newTestTimer(1000)
	tm.Start(context.Background())
	tm.Cancel()
	tm.Cancel()
}

func TestTimerStartOnce(t *testing.T) {
	tm := newTestTimer(2)
	ctx := context.Background()
	tm.Start(ctx)
	tm.Start(ctx) // no-op; a second run loop would double-close events

	var expiries int
	for ev := range tm.Events() {
		if ev.Expired {
			expiries++
		}
	}
	if expiries != 1 {
		t.Errorf("expiries = %d, want exactly 1", expiries)
	}
}

func TestTimerContextCancel(t *testing.T) {
	tm := newTestTimer(1000)
	ctx, cancel := context.WithCancel(context.Background())
	tm.Start(ctx)
	cancel()

	select {
	case <-drainUntilClosed(tm.Events()):
	case <-time.After(time.Second):
		t.Fatal("timer did not stop after context cancel")
	}
}

// drainUntilClosed consumes events and signals when the channel closes.
func drainUntilClosed(ch <-chan TimerEvent) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	return done
}
