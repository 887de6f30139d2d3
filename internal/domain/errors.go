package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleResult marks an optimization result computed against a stop set
	// that no longer matches the store. It is always wrapped in a ValidationError.
	ErrStaleResult = errors.New("stale optimization result")

	ErrNotEnoughStops  = errors.New("at least 2 stops are required")
	ErrSessionNotFound = errors.New("session not found")
	ErrRouteNotFound   = errors.New("route not found")
)

// ValidationError reports caller misuse. It is never retried automatically
// and the ordering is left unchanged.
type ValidationError struct {
	Op     string
	Reason string
	Err    error
}

func NewValidationError(op, reason string, err error) *ValidationError {
	return &ValidationError{Op: op, Reason: reason, Err: err}
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// TransientServiceError wraps a geocoding, travel-time or optimization
// service failure. The affected derived data stays absent; callers may retry.
type TransientServiceError struct {
	Service string
	Err     error
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *TransientServiceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransient reports whether err is or wraps a TransientServiceError.
func IsTransient(err error) bool {
	var te *TransientServiceError
	return errors.As(err, &te)
}
