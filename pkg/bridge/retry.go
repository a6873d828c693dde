package bridge

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig defines retry behavior for Client sends.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (0 = no retries).
	MaxRetries int
	// InitialBackoff is the initial delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which backoff increases.
	BackoffMultiplier float64
	// Jitter adds up to 25% random delay to each backoff.
	Jitter bool
	// RetryableStatusCodes defines which HTTP status codes should trigger retries.
	RetryableStatusCodes map[int]bool
}

// DefaultRetryConfig returns sensible defaults for retry behavior.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        2,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
		RetryableStatusCodes: map[int]bool{
			http.StatusTooManyRequests:    true, // 429
			http.StatusBadGateway:         true, // 502
			http.StatusServiceUnavailable: true, // 503
			http.StatusGatewayTimeout:     true, // 504
		},
	}
}

type retryPolicy struct {
	config RetryConfig
}

func newRetryPolicy(config RetryConfig) *retryPolicy {
	def := DefaultRetryConfig()
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = def.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = def.MaxBackoff
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = def.BackoffMultiplier
	}
	if config.RetryableStatusCodes == nil {
		config.RetryableStatusCodes = def.RetryableStatusCodes
	}
	return &retryPolicy{config: config}
}

// shouldRetry reports whether attempt (zero based) may be followed by another.
// Context errors are final.
func (rp *retryPolicy) shouldRetry(statusCode int, err error, attempt int) bool {
	if attempt >= rp.config.MaxRetries {
		return false
	}
	if err != nil {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return rp.config.RetryableStatusCodes[statusCode]
}

func (rp *retryPolicy) backoff(attempt int) time.Duration {
	backoff := time.Duration(float64(rp.config.InitialBackoff) * math.Pow(rp.config.BackoffMultiplier, float64(attempt)))
	if backoff > rp.config.MaxBackoff {
		backoff = rp.config.MaxBackoff
	}
	if rp.config.Jitter && backoff >= 4 {
		// #nosec G404 - Non-cryptographic random is acceptable for jitter
		backoff += time.Duration(rand.Int63n(int64(backoff / 4)))
	}
	return backoff
}

// wait sleeps for the attempt's backoff or until ctx is done.
func (rp *retryPolicy) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(rp.backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
