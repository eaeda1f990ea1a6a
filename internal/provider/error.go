package provider

import (
	"errors"
	"fmt"
)

// ErrEmptyCompletion means the upstream call succeeded but produced no text.
var ErrEmptyCompletion = errors.New("provider: empty completion")

// Error wraps an upstream failure with the provider name and, where
// available, the upstream HTTP status.
type Error struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
