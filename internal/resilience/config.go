package resilience

import (
	"time"
)

// FromRetryConfig converts config values to a RetryConfig. The delays are
// fractional seconds as configured under ai.retry_delay_secs and
// ai.max_backoff_secs; jitter is the fraction configured under ai.jitter.
func FromRetryConfig(maxAttempts int, retryDelaySecs, maxBackoffSecs, jitter float64) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if retryDelaySecs >= 0 {
		cfg.BaseDelay = secs(retryDelaySecs)
	}
	if maxBackoffSecs > 0 {
		cfg.MaxBackoff = secs(maxBackoffSecs)
	}
	if jitter > 0 {
		cfg.JitterFraction = jitter
	}
	return cfg
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// FromBreakerConfig converts config values to a BreakerConfig.
func FromBreakerConfig(name string, failures, openTimeoutSecs int) BreakerConfig {
	cfg := BreakerConfig{Name: name}
	if failures > 0 {
		cfg.ConsecutiveFailures = uint32(failures)
	}
	if openTimeoutSecs > 0 {
		cfg.OpenTimeout = time.Duration(openTimeoutSecs) * time.Second
	}
	return cfg
}
