package mdall

import (
	"errors"
	"fmt"
)

// ErrorCategory defines the normalized failure taxonomy for lookup calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the service took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the service returned a body that could not be decoded
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorServiceOutage indicates a connection failure or an unusable status
	ErrorServiceOutage ErrorCategory = "service_outage"

	// ErrorRateLimited indicates the service asked us to slow down
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorCanceled indicates the caller's context ended the call
	ErrorCanceled ErrorCategory = "canceled"

	// ErrorInternal indicates an unexpected local failure (bad request URL etc.)
	ErrorInternal ErrorCategory = "internal"
)

// LookupError wraps lookup failures with normalized categorization.
type LookupError struct {
	Category   ErrorCategory
	Endpoint   string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *LookupError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Endpoint, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Endpoint, e.Category, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Underlying
}

// NewLookupError creates a normalized lookup error. Transport-level
// categories (timeout, undecodable body, outage, rate limiting) are retryable.
func NewLookupError(category ErrorCategory, endpoint, message string, underlying error) *LookupError {
	retryable := category == ErrorTimeout ||
		category == ErrorBadData ||
		category == ErrorServiceOutage ||
		category == ErrorRateLimited

	return &LookupError{
		Category:   category,
		Endpoint:   endpoint,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var le *LookupError
	if errors.As(err, &le) {
		return le.Category
	}
	return ErrorInternal
}
