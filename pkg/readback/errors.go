package readback

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrAdmissionRejected is returned by Begin while a cycle is in flight.
	// Callers drop the frame and try again later.
	ErrAdmissionRejected = errors.New("readback: cycle already in flight")

	// ErrBackendDataUnavailable aborts a cycle whose output tensor is missing
	// or lost its backend data.
	ErrBackendDataUnavailable = errors.New("readback: backend data unavailable")

	// ErrNoEngine is returned when the machine is built without an engine.
	ErrNoEngine = errors.New("readback: engine required")

	// ErrClosed is returned by Begin after Close.
	ErrClosed = errors.New("readback: machine closed")
)

// TensorError identifies which output aborted a cycle and in which state.
type TensorError struct {
	Index int
	State State
	Err   error
}

// Error implements the error interface.
func (e *TensorError) Error() string {
	return fmt.Sprintf("readback [output %d, %s]: %v", e.Index, e.State, e.Err)
}

// Unwrap returns the underlying error.
func (e *TensorError) Unwrap() error {
	return e.Err
}
