// Package clock provides a clock abstraction so that timeout and retry
// behavior in codemend can be driven deterministically from tests.
package clock

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	Sleep(d time.Duration)
	Since(t time.Time) time.Duration
}

type RealClock struct{}

func NewRealClock() Clock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

func (c *RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func (c *RealClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// FakeClock is a manually advanced clock for tests.
type FakeClock struct {
	mu        sync.RWMutex
	now       time.Time
	waiters   []waiter
	advanceMu sync.Mutex
}

type waiter struct {
	ch       chan time.Time
	deadline time.Time
}

func NewFakeClock(now time.Time) *FakeClock {
	return &FakeClock{now: now}
}

func (c *FakeClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}

	c.waiters = append(c.waiters, waiter{ch: ch, deadline: c.now.Add(d)})
	return ch
}

func (c *FakeClock) Sleep(d time.Duration) {
	<-c.After(d)
}

func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// Advance moves the fake clock forward, firing any waiters whose deadline
// has been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.advanceMu.Lock()
	defer c.advanceMu.Unlock()

	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	c.fireWaiters(now)
}

func (c *FakeClock) fireWaiters(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !now.Before(w.deadline) {
			select {
			case w.ch <- now:
			default:
			}
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}

// WithTimeout derives a context whose expiry is driven by the given clock.
// Expiry is reported as context.DeadlineExceeded through context.Cause, the
// same way context.WithTimeout reports it, so callers can tell a timeout
// from an ordinary cancellation.
func WithTimeout(ctx context.Context, clock Clock, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := clock.(*RealClock); ok {
		return context.WithTimeout(ctx, timeout)
	}

	timed, cancel := context.WithCancelCause(ctx)
	go func() {
		select {
		case <-clock.After(timeout):
			cancel(context.DeadlineExceeded)
		case <-timed.Done():
		}
	}()

	return timed, func() { cancel(context.Canceled) }
}
