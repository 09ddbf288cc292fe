// Package jobserrors is the sentinel-error taxonomy for the job runner,
// replacing the exception-based control flow of the source implementation.
package jobserrors

import (
	"errors"
	"fmt"

	pkgerrors "github.com/videditor/jobrunner/internal/pkg/errors"
)

var (
	// ErrMissingPayloadField marks a payload validation error: a required field was absent or empty.
	ErrMissingPayloadField = errors.New("missing required payload field")
	// ErrUnknownJobType marks a job whose type has no registered handler.
	ErrUnknownJobType = errors.New("unknown job type")
	// ErrCollaborator marks a failure in an external collaborator (object store,
	// media toolchain, speech-to-text engine, text-generation client).
	ErrCollaborator = errors.New("collaborator error")
	// ErrStaleTransition marks a transition attempted against a job no longer in the expected state.
	ErrStaleTransition = errors.New("stale job transition")
	// ErrNotFound marks a missing row a handler expected to exist.
	ErrNotFound = pkgerrors.ErrNotFound
)

// MissingField builds an ErrMissingPayloadField wrapping error naming the field.
func MissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingPayloadField)
}

// Collaborator wraps an underlying collaborator failure with a named stage and detail excerpt.
func Collaborator(stage string, detail string) error {
	return fmt.Errorf("%s: %s: %w", stage, detail, ErrCollaborator)
}
