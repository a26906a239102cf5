package interview

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TimerEvent is a countdown update. Expired is set on the single terminal
// event, after which no further events follow.
type TimerEvent struct {
	Remaining int
	Expired   bool
}

// Timer counts a session budget down, emitting one tick per second and
// exactly one expiry. A timer cannot be restarted; a new session creates a
// new timer.
type Timer struct {
	budget   int
	interval time.Duration
	events   chan TimerEvent
	stopCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewTimer creates a timer for the given budget in seconds.
func NewTimer(budgetSeconds int) *Timer {
	return &Timer{
		budget:   budgetSeconds,
		interval: time.Second,
		events:   make(chan TimerEvent, TimerEventBuffer),
		stopCh:   make(chan struct{}),
	}
}

// Events returns the countdown channel. It is closed after the expiry event
// or a cancel.
func (t *Timer) Events() <-chan TimerEvent { return t.events }

// Start begins the countdown. Starting twice is a no-op.
func (t *Timer) Start(ctx context.Context) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}
	go t.run(ctx)
}

func (t *Timer) run(ctx context.Context) {
	defer close(t.events)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	remaining := t.budget
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case <-ticker.C:
			remaining--
			if remaining <= 0 {
				// The expiry must not be lost to a slow consumer.
				select {
				case t.events <- TimerEvent{Remaining: 0, Expired: true}:
				case <-t.stopCh:
				case <-ctx.Done():
				}
				return
			}
			// Ticks are advisory; drop them rather than stall.
			select {
			case t.events <- TimerEvent{Remaining: remaining}:
			default:
			}
		}
	}
}

// Cancel stops the countdown and suppresses the expiry if it has not fired.
func (t *Timer) Cancel() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}
