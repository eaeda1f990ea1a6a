package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingIdentity means no caller identity was attached to the request.
	ErrMissingIdentity = errors.New("content: missing caller identity")

	// ErrUnknownAccount means the caller identity does not resolve to an
	// account with a credit balance.
	ErrUnknownAccount = errors.New("content: unknown account")

	// ErrGenerationFailed covers provider errors, timeouts, and empty
	// provider output. No state has changed when it is returned.
	ErrGenerationFailed = errors.New("content: generation failed")

	// ErrPersistenceFailed means the artifact insert failed after a
	// successful provider call. The balance is untouched.
	ErrPersistenceFailed = errors.New("content: failed to persist artifact")

	// ErrArtifactNotFound is returned for deletes of artifacts that do not
	// exist or are owned by someone else. The two cases are deliberately
	// indistinguishable.
	ErrArtifactNotFound = errors.New("content: artifact not found")
)

// ValidationError reports required request fields that were absent or empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("content: missing required fields: %s", strings.Join(e.Fields, ", "))
}

// InsufficientCreditsError is returned when the request cost exceeds the
// account's current balance.
type InsufficientCreditsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("content: insufficient credits: required %d, available %d", e.Required, e.Available)
}
