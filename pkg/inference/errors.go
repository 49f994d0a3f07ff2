package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("inference: model file not found")

	// ErrModelLoad is returned when the model cannot be loaded.
	ErrModelLoad = errors.New("inference: failed to load model")

	// ErrForeignTensor is returned when a tensor from another engine is
	// scheduled.
	ErrForeignTensor = errors.New("inference: tensor not created by this engine")

	// ErrDisposed is returned when a disposed tensor is used.
	ErrDisposed = errors.New("inference: tensor disposed")

	// ErrEmptyImage is returned when an input frame decodes to nothing.
	ErrEmptyImage = errors.New("inference: empty image")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("inference: engine closed")
)

// ModelError wraps a model failure with its path.
type ModelError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ModelError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModelError) Unwrap() error {
	return e.Err
}
