package resilience

import (
	"errors"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

// StatusError carries the HTTP status a provider answered with.
type StatusError struct {
	Err        error
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Err.Error()
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError wraps err with the HTTP status code of the failed response.
func NewStatusError(err error, statusCode int) *StatusError {
	return &StatusError{Err: err, StatusCode: statusCode}
}

// IsRateLimited reports whether err (or any error in its chain) signals
// provider throttling, either as model.ErrRateLimited or as an HTTP 429.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, model.ErrRateLimited) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 429
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504, // Gateway Timeout
		529: // Overloaded
		return true
	default:
		return false
	}
}
