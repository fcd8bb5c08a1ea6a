package kdftls

import (
	"errors"
	"fmt"

	"acvp-tlskdf/registry"
)

var (
	// ErrInvalidInput reports a malformed record, detected before or by the
	// backend.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedHash reports a hash selector the backend cannot serve.
	ErrUnsupportedHash = errors.New("unsupported hash algorithm")

	// ErrOutputLength reports a backend that left an output at the wrong size.
	ErrOutputLength = errors.New("backend produced output of wrong length")

	// ErrNoBackend is returned by Dispatch when nothing has been registered.
	ErrNoBackend = registry.ErrNoBackend
)

// ValidationError names the record field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
