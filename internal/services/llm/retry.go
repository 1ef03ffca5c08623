package llm

import (
	"math/rand"
	"time"
)

// RetryConfig defines backoff behavior for transient analysis failures.
type RetryConfig struct {
	// MaxAttempts is the total attempt ceiling, first call included.
	MaxAttempts int

	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between retries.
	MaxBackoff time.Duration

	// BackoffMultiplier is applied to the backoff on each retry.
	BackoffMultiplier float64
}

// Default retry constants for the Anthropic API.
const (
	DefaultMaxAttempts       = 3
	DefaultInitialBackoff    = 2 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// NewDefaultRetryConfig returns a RetryConfig with sensible defaults.
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       DefaultMaxAttempts,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// CalculateBackoff computes the wait before retry number attempt (0-based),
// with up to 25% random jitter added so workers retrying simultaneously
// spread out instead of hammering the rate limit window together.
func (c *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
	}
	if backoff > float64(c.MaxBackoff) {
		backoff = float64(c.MaxBackoff)
	}

	jitter := backoff * 0.25 * rand.Float64()
	return time.Duration(backoff + jitter)
}
