package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	clock := NewRealClock()

	start := clock.Now()
	clock.Sleep(10 * time.Millisecond)
	elapsed := clock.Since(start)

	assert.True(t, elapsed >= 10*time.Millisecond)
}

func TestFakeClockNow(t *testing.T) {
	baseTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(baseTime)

	assert.Equal(t, baseTime, clock.Now())

	clock.Advance(time.Hour)
	assert.Equal(t, baseTime.Add(time.Hour), clock.Now())
}

func TestFakeClockAfter(t *testing.T) {
	baseTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(baseTime)

	// Zero duration fires immediately.
	ch := clock.After(0)
	select {
	case received := <-ch:
		assert.Equal(t, baseTime, received)
	case <-time.After(10 * time.Millisecond):
		t.Fatal("expected immediate firing")
	}

	ch = clock.After(time.Hour)

	select {
	case <-ch:
		t.Fatal("should not fire before the deadline")
	default:
	}

	clock.Advance(time.Hour)
	select {
	case received := <-ch:
		assert.Equal(t, baseTime.Add(time.Hour), received)
	case <-time.After(10 * time.Millisecond):
		t.Fatal("expected firing after advance")
	}
}

func TestFakeClockSince(t *testing.T) {
	baseTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(baseTime)

	clock.Advance(42 * time.Second)
	assert.Equal(t, 42*time.Second, clock.Since(baseTime))
}

func TestWithTimeout(t *testing.T) {
	baseTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(baseTime)

	ctx, cancel := WithTimeout(context.Background(), clock, time.Minute)
	defer cancel()

	select {
	case <-ctx.Done():
		t.Fatal("context should not be done yet")
	default:
	}

	clock.Advance(time.Minute)

	select {
	case <-ctx.Done():
		assert.Error(t, ctx.Err())
	case <-time.After(time.Second):
		t.Fatal("context not canceled after timeout elapsed")
	}
}

func TestWithTimeoutExpiryReportsDeadlineExceeded(t *testing.T) {
	baseTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(baseTime)

	ctx, cancel := WithTimeout(context.Background(), clock, time.Minute)
	defer cancel()

	clock.Advance(time.Minute)
	<-ctx.Done()

	assert.Equal(t, context.DeadlineExceeded, context.Cause(ctx))
}

func TestWithTimeoutCancelReportsCanceled(t *testing.T) {
	baseTime := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(baseTime)

	ctx, cancel := WithTimeout(context.Background(), clock, time.Minute)
	cancel()

	<-ctx.Done()
	assert.Equal(t, context.Canceled, context.Cause(ctx))
}

func TestWithTimeoutRealClockExpiry(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), NewRealClock(), 10*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
		assert.Equal(t, context.DeadlineExceeded, context.Cause(ctx))
	case <-time.After(time.Second):
		t.Fatal("context not canceled after timeout elapsed")
	}
}
