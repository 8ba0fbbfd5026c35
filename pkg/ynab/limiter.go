package ynab

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// limiter is a token bucket refilled lazily on each acquire. YNAB allows a
// fixed number of requests per rolling hour per token.
type limiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	perSecond  float64
	lastRefill time.Time
	now        func() time.Time
	poll       time.Duration
}

func newLimiter(requestsPerHour int) *limiter {
	if requestsPerHour <= 0 {
		requestsPerHour = DefaultRequestsPerHour
	}
	l := &limiter{
		tokens:    float64(requestsPerHour),
		capacity:  float64(requestsPerHour),
		perSecond: float64(requestsPerHour) / time.Hour.Seconds(),
		now:       time.Now,
		poll:      250 * time.Millisecond,
	}
	l.lastRefill = l.now()
	return l
}

// wait blocks until a token is available or ctx is done.
func (l *limiter) wait(ctx context.Context) error {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		if l.tryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *limiter) tryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if elapsed := now.Sub(l.lastRefill).Seconds(); elapsed > 0 {
		l.tokens += elapsed * l.perSecond
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
		l.lastRefill = now
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

func (l *limiter) remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(l.tokens)
}
