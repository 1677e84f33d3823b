package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// Limiter grants at most one release per minimum interval across all callers.
type Limiter struct {
	minInterval time.Duration
	limiter     *rate.Limiter
}

// NewLimiter creates a limiter whose first TryAcquire succeeds immediately.
func NewLimiter(minInterval time.Duration) *Limiter {
	return &Limiter{
		minInterval: minInterval,
		limiter:     rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// TryAcquire is non-blocking. Callers that get false must retry later or skip the action.
func (l *Limiter) TryAcquire() bool {
	return l.limiter.Allow()
}

func (l *Limiter) Interval() time.Duration {
	return l.minInterval
}
