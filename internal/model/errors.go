package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Error taxonomy shared across packages. Callers match with errors.Is.
var (
	// ErrConfiguration marks fatal setup problems: bad rules, missing keys,
	// unknown company filters. Never retried.
	ErrConfiguration = eris.New("configuration error")

	// ErrTemplateNotFound means no template exists for a company/segment pair.
	// Fatal to one output row only.
	ErrTemplateNotFound = eris.New("template not found")

	// ErrRateLimited is a recoverable rate-limit signal from the text generator.
	ErrRateLimited = eris.New("rate limited")

	// ErrService is any other recoverable text-generator failure.
	ErrService = eris.New("service error")

	// ErrExhaustedRetries is resolved internally by substituting fallback text.
	ErrExhaustedRetries = eris.New("retries exhausted")
)

// UnknownCompanyError is returned when a company filter names a company
// missing from the rules. It unwraps to ErrConfiguration.
type UnknownCompanyError struct {
	CompanyID string
	Available []string
}

func (e *UnknownCompanyError) Error() string {
	return fmt.Sprintf("unknown company '%s' (available: %s)", e.CompanyID, strings.Join(e.Available, ", "))
}

func (e *UnknownCompanyError) Unwrap() error {
	return ErrConfiguration
}
