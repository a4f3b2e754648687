package utils

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/socialchef/moodbite/internal/errors"
)

// RetryConfig holds the configuration for the retry mechanism.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	// Timeout bounds each attempt, not the whole call.
	Timeout         time.Duration
	RetryableErrors []string
	// Retryable, if set, replaces IsRetryableError for deciding whether to retry.
	Retryable func(error) bool
	// OnRetry, if set, is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error)
}

// RetryableFunc defines the signature for operations that can be retried.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// DefaultRetryConfig returns a RetryConfig with sensible default values.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Timeout:       30 * time.Second,
		RetryableErrors: []string{
			"timeout",
			"connection reset",
			"rate limit",
			"connection refused",
			"unexpected eof",
			"status 5", // "status 502", "status 503"
		},
	}
}

// UpstreamRetryConfig is used around calls to the inference and feature
// extraction services. Each attempt gets the full upstream timeout and only
// one extra attempt is made so a slow upstream cannot hold a request for long.
func UpstreamRetryConfig(attemptTimeout time.Duration) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 2
	cfg.InitialDelay = 500 * time.Millisecond
	cfg.MaxDelay = 2 * time.Second
	cfg.Timeout = attemptTimeout
	return cfg
}

// IsRetryableError checks if the given error is retryable. Application errors
// decide for themselves; anything else is matched against patterns.
func IsRetryableError(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	if appErr, ok := errors.As(err); ok {
		return appErr.IsRetryable()
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(errMsg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// WithRetry executes the given operation with retries based on the provided config.
func WithRetry[T any](ctx context.Context, operation RetryableFunc[T], config RetryConfig) (T, error) {
	var lastErr error
	var zero T

	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, config.Timeout)

		result, err := operation(attemptCtx)
		cancel()

		if err == nil {
			return result, nil
		}

		lastErr = err

		if attempt == config.MaxAttempts {
			break
		}
		// The caller gave up; a per-attempt deadline is still worth retrying.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !config.shouldRetry(err) {
			break
		}

		delay := backoff(config, attempt)
		if config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

func (c RetryConfig) shouldRetry(err error) bool {
	if c.Retryable != nil {
		return c.Retryable(err)
	}
	return IsRetryableError(err, c.RetryableErrors)
}

// backoff is InitialDelay * BackoffFactor^(attempt-1), capped at MaxDelay,
// plus up to 10% jitter.
func backoff(config RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	if jitterRange := int64(delay) / 10; jitterRange > 0 {
		delay += time.Duration(rand.Int63n(jitterRange))
	}
	return delay
}
