package collector

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField indicates a required configuration field was not provided.
	ErrMissingField = errors.New("missing required configuration field")

	// ErrInvalidField indicates a configuration field was provided but failed validation.
	ErrInvalidField = errors.New("invalid configuration field")

	// ErrInvalidCredentials indicates the service account secret was malformed
	// or rejected while constructing an authenticated client.
	ErrInvalidCredentials = errors.New("invalid service account credentials")
)

// RequestFailedError wraps a query execution failure. The run that hit it is
// aborted: nothing is saved and the pointer is not updated.
type RequestFailedError struct {
	Query string
	Err   error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("query execution failed: %s", e.Err)
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}

func invalidField(name, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidField, name, reason)
}
