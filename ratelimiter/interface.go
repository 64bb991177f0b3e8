package ratelimiter

import (
	"context"
	"time"
)

// Limiter gates generation requests for a single model.
// Implementations can be local (in-memory) or distributed.
type Limiter interface {
	// TryConsume atomically checks capacity and consumes tokens plus one
	// request if both are available.
	TryConsume(numTokens int) bool

	// TimeUntilAvailable returns how long until tokens would be available.
	TimeUntilAvailable(tokens int) time.Duration

	// Limiting reports which dimension would reject a request for tokens:
	// LimitTokens, LimitRequests, or "" when both have capacity.
	Limiting(tokens int) string

	// WaitAndConsume waits until tokens are available, then consumes them.
	// Returns an error if ctx is done or maxWait would be exceeded.
	WaitAndConsume(ctx context.Context, tokens int, maxWait time.Duration) error
}
