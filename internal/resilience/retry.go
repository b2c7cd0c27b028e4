package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls how a failing call is repeated. Throttled calls back
// off exponentially from BaseDelay; every other failure waits BaseDelay flat.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 3.
	MaxAttempts int

	// BaseDelay is the wait after a failed attempt. Rate-limited attempts
	// wait BaseDelay * 2^attempt. Default: 1s.
	BaseDelay time.Duration

	// MaxBackoff caps the rate-limit backoff. Zero leaves it uncapped.
	MaxBackoff time.Duration

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = no jitter, 0.5 = ±50%). Default: 0.
	JitterFraction float64

	// ShouldRetry optionally stops retrying for errors it rejects.
	// If nil, every error is retried.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the retry policy used for text generation calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// Do executes fn with retry logic according to cfg. Context cancellation
// stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn returning a value with retry logic. Same semantics as Do
// but preserves the return value from the successful call.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(lastErr) {
			return zero, lastErr
		}

		// Don't sleep after the last attempt.
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		delay := computeBackoff(attempt, lastErr, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay < 0 {
		cfg.BaseDelay = 0
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	return cfg
}

func computeBackoff(attempt int, err error, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay)
	if IsRateLimited(err) {
		delay *= math.Pow(2, float64(attempt))
		if cfg.MaxBackoff > 0 && delay > float64(cfg.MaxBackoff) {
			delay = float64(cfg.MaxBackoff)
		}
	}

	// Apply jitter: ±JitterFraction of delay.
	if cfg.JitterFraction > 0 {
		jitterRange := delay * cfg.JitterFraction
		jitter := (rand.Float64()*2 - 1) * jitterRange // [-jitterRange, +jitterRange]
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Bool("rate_limited", IsRateLimited(err)),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
}
