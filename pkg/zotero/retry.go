package zotero

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy holds the configuration for retry backoff.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// BaseDelay seeds the exponential backoff schedule.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff delay before jitter.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    4 * time.Second,
	}
}

// delayForAttempt computes the backoff before the given attempt. The first
// attempt never waits. Attempt n waits min(MaxDelay, BaseDelay*2^(n-2)),
// plus up to 20% additive jitter to prevent thundering herd.
func delayForAttempt(attempt int, policy RetryPolicy) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delay := float64(policy.BaseDelay) * math.Pow(2, float64(attempt-2))
	if limit := float64(policy.MaxDelay); delay > limit {
		delay = limit
	}
	delay += rand.Float64() * delay * 0.2

	return time.Duration(delay)
}
