package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the delivery pipeline. These provide
// consistent, checkable errors for the failure modes callers must
// distinguish.
var (
	// ErrBrokerUnavailable is returned by a publish attempted while the
	// broker is disconnected. It is surfaced to the caller, never silently
	// dropped, and no network write happens.
	ErrBrokerUnavailable = errors.New("message broker is not available")

	// ErrMalformedMessage marks a consumer-side JSON decode failure. The
	// frame is negatively acknowledged and never reaches any socket.
	ErrMalformedMessage = errors.New("malformed message body")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("requested resource not found")
)

// ValidationError rejects a send synchronously, before any broker or
// directory interaction.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
