package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrMaxWaitExceeded is returned by WaitAndConsume when the required wait is
// longer than the caller allows.
var ErrMaxWaitExceeded = errors.New("rate limit wait exceeds max wait")

// Dimensions reported by Limiting.
const (
	LimitTokens   = "tokens"
	LimitRequests = "requests"
)

// RateLimiter limits tokens and requests per refill interval.
type RateLimiter struct {
	tokens   *TokenBucket
	requests *TokenBucket

	mu sync.Mutex
}

var _ Limiter = (*RateLimiter)(nil)

// New creates a per-minute limiter. A non-positive limit disables that dimension.
func New(tokensPerMinute, requestsPerMinute int) *RateLimiter {
	return NewWithClock(tokensPerMinute, requestsPerMinute, time.Minute, time.Now)
}

// NewWithClock creates a limiter with a custom refill interval and time source.
func NewWithClock(tokensPerInterval, requestsPerInterval int, interval time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		tokens:   NewTokenBucket(tokensPerInterval, interval, now),
		requests: NewTokenBucket(requestsPerInterval, interval, now),
	}
}

// TryConsume consumes numTokens and one request if both are available.
// Nothing is consumed when either bucket is short.
func (rl *RateLimiter) TryConsume(numTokens int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if !rl.tokens.HasCapacity(numTokens) || !rl.requests.HasCapacity(1) {
		return false
	}
	rl.tokens.TryConsume(numTokens)
	rl.requests.TryConsume(1)
	return true
}

// Limiting reports the bucket that is short, checking requests first.
func (rl *RateLimiter) Limiting(tokens int) string {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	switch {
	case !rl.requests.HasCapacity(1):
		return LimitRequests
	case !rl.tokens.HasCapacity(tokens):
		return LimitTokens
	default:
		return ""
	}
}

// TimeUntilAvailable returns the longer of the token and request waits.
func (rl *RateLimiter) TimeUntilAvailable(tokens int) time.Duration {
	return max(rl.tokens.TimeUntilAvailable(tokens), rl.requests.TimeUntilAvailable(1))
}

// WaitAndConsume waits until tokens are available (up to maxWait), then
// consumes them. A zero maxWait means no limit.
func (rl *RateLimiter) WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error {
	if rl.tokens.capacity > 0 && tokens > rl.tokens.capacity {
		return fmt.Errorf("%w: %d tokens requested, capacity %d", ErrMaxWaitExceeded, tokens, rl.tokens.capacity)
	}

	var waited time.Duration
	for {
		if rl.TryConsume(tokens) {
			return nil
		}

		wait := max(rl.TimeUntilAvailable(tokens), time.Millisecond)
		if maxWait > 0 && waited+wait > maxWait {
			return fmt.Errorf("%w: need %v, max %v", ErrMaxWaitExceeded, waited+wait, maxWait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		waited += wait
	}
}

// TokenBucket is a continuously refilling token bucket.
type TokenBucket struct {
	capacity  int
	remaining float64
	interval  time.Duration
	last      time.Time
	now       func() time.Time

	mu sync.Mutex
}

// NewTokenBucket creates a full bucket. A non-positive capacity never limits.
func NewTokenBucket(capacity int, interval time.Duration, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:  capacity,
		remaining: float64(capacity),
		interval:  interval,
		last:      now(),
		now:       now,
	}
}

// HasCapacity reports whether tokens are available without consuming them.
func (tb *TokenBucket) HasCapacity(tokens int) bool {
	if tb.capacity <= 0 {
		return true
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return float64(tokens) <= tb.remaining
}

// TryConsume consumes tokens if available.
func (tb *TokenBucket) TryConsume(tokens int) bool {
	if tb.capacity <= 0 {
		return true
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	if float64(tokens) > tb.remaining {
		return false
	}
	tb.remaining -= float64(tokens)
	return true
}

// Remaining returns the whole tokens currently available.
func (tb *TokenBucket) Remaining() int {
	if tb.capacity <= 0 {
		return math.MaxInt
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return int(tb.remaining)
}

// TimeUntilAvailable returns how long until tokens would be available.
func (tb *TokenBucket) TimeUntilAvailable(tokens int) time.Duration {
	if tb.capacity <= 0 {
		return 0
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()

	missing := float64(tokens) - tb.remaining
	if missing <= 0 {
		return 0
	}
	perToken := float64(tb.interval) / float64(tb.capacity)
	return time.Duration(math.Ceil(missing * perToken))
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.last)
	if elapsed <= 0 {
		return
	}
	tb.last = now
	tb.remaining = math.Min(float64(tb.capacity),
		tb.remaining+float64(tb.capacity)*float64(elapsed)/float64(tb.interval))
}
