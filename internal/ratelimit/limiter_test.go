package ratelimit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_FirstAcquireSucceeds(t *testing.T) {
	l := NewLimiter(time.Hour)
	if !l.TryAcquire() {
		t.Fatal("first TryAcquire should succeed")
	}
	if l.TryAcquire() {
		t.Fatal("second TryAcquire within the interval should fail")
	}
}

func TestLimiter_ReleasesAfterInterval(t *testing.T) {
	l := NewLimiter(20 * time.Millisecond)
	if !l.TryAcquire() {
		t.Fatal("first TryAcquire should succeed")
	}
	time.Sleep(30 * time.Millisecond)
	if !l.TryAcquire() {
		t.Fatal("TryAcquire should succeed once the interval has elapsed")
	}
}

func TestLimiter_ConcurrentCallersShareOneWindow(t *testing.T) {
	l := NewLimiter(time.Hour)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAcquire() {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != 1 {
		t.Errorf("granted = %d, want exactly 1", got)
	}
}

func TestLimiter_RateBound(t *testing.T) {
	interval := 25 * time.Millisecond
	l := NewLimiter(interval)

	start := time.Now()
	grants := 0
	for time.Since(start) < 200*time.Millisecond {
		if l.TryAcquire() {
			grants++
		}
		time.Sleep(time.Millisecond)
	}
	elapsed := time.Since(start)

	limit := int(elapsed/interval) + 1
	if grants > limit {
		t.Errorf("grants = %d over %v, want <= %d", grants, elapsed, limit)
	}
	if grants < 2 {
		t.Errorf("grants = %d, limiter never released again", grants)
	}
}
