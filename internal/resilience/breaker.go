// Package resilience provides circuit breaker and retry patterns for external service calls.
package resilience

import (
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls circuit breaker behavior.
type BreakerConfig struct {
	// Name identifies the breaker in logs.
	Name string

	// ConsecutiveFailures opens the circuit once reached. Zero disables the
	// breaker entirely.
	ConsecutiveFailures uint32

	// OpenTimeout is how long the circuit stays open before a probe. Default: 30s.
	OpenTimeout time.Duration
}

// Breaker guards a provider with a sony/gobreaker circuit. A nil *Breaker
// passes every call through.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker returns nil when cfg.ConsecutiveFailures is zero.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.ConsecutiveFailures == 0 {
		return nil
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	threshold := cfg.ConsecutiveFailures

	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var nce *nonCircuitError
			return err == nil || errors.As(err, &nce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.L().Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})}
}

// Execute runs fn through the breaker. Client errors other than throttling
// are returned unchanged without counting as failures.
func (b *Breaker) Execute(fn func() error) error {
	if b == nil {
		return fn()
	}

	_, err := b.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			var se *StatusError
			if errors.As(err, &se) && !IsTransientHTTPStatus(se.StatusCode) {
				return nil, &nonCircuitError{err: err}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return eris.Wrapf(ErrCircuitOpen, "breaker %s", b.cb.Name())
	}
	return err
}

// State returns the breaker state name, "disabled" for a nil breaker.
func (b *Breaker) State() string {
	if b == nil {
		return "disabled"
	}
	return b.cb.State().String()
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}
