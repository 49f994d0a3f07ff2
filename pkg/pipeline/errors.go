package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrMissingCollaborator is returned by constructors when a required
	// dependency is nil.
	ErrMissingCollaborator = errors.New("pipeline: missing collaborator")

	// ErrCameraNotPlaying means no frame could be captured. Loops idle on it.
	ErrCameraNotPlaying = errors.New("pipeline: camera not playing")

	// ErrInvalidConfig is returned when the config fails validation.
	ErrInvalidConfig = errors.New("pipeline: invalid config")
)

// MissingCollaboratorError names the dependency that was not supplied.
type MissingCollaboratorError struct {
	Name string
}

// Error implements the error interface.
func (e *MissingCollaboratorError) Error() string {
	return fmt.Sprintf("pipeline: missing collaborator %q", e.Name)
}

// Unwrap returns ErrMissingCollaborator.
func (e *MissingCollaboratorError) Unwrap() error {
	return ErrMissingCollaborator
}

func missing(name string) error {
	return &MissingCollaboratorError{Name: name}
}
