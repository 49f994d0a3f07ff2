// Package inference is the accelerator contract the readback state machine
// drives: an engine that schedules a network over an input tensor in steps and
// exposes its outputs as device tensors that must be read back to the host.
//
// Two engines are provided: NetEngine runs an ONNX model through OpenCV DNN,
// and Mock scripts outputs and counts live handles for tests.
//
// Example usage:
//
//	engine, _ := inference.NewNetEngine(
//	    inference.WithModelPath("models/yolov8n.onnx"),
//	    inference.WithInputSize(640),
//	)
//	defer engine.Close()
//
//	input, _ := engine.Input(jpeg)
//	sched, _ := engine.Schedule(input)
//	for sched != nil && sched.Step() {
//	}
//	out := engine.PeekOutput(0)
package inference

// Tensor is any handle that holds memory until disposed.
type Tensor interface {
	// Shape returns the tensor dimensions.
	Shape() []int

	// Dispose releases the tensor. Calling it twice is a no-op.
	Dispose()
}

// HostTensor is a tensor readable by the CPU.
type HostTensor interface {
	Tensor

	// Float32s returns the tensor data, row-major.
	Float32s() []float32
}

// DeviceTensor is an output that lives on the accelerator.
type DeviceTensor interface {
	Tensor

	// OnBackend reports whether the tensor still has backend data.
	OnBackend() bool

	// RequestReadback starts an asynchronous copy to the host.
	RequestReadback()

	// ReadbackDone reports whether the requested copy has completed.
	ReadbackDone() bool

	// ReadbackAndClone returns a host copy owned by the caller.
	ReadbackAndClone() (HostTensor, error)
}

// Schedule is an in-progress network execution.
type Schedule interface {
	// Step runs the next chunk of work and reports whether more remains.
	Step() bool
}

// Engine runs a model on an accelerator.
type Engine interface {
	// Input converts a JPEG frame into the model's input tensor. The caller
	// owns the returned tensor.
	Input(jpeg []byte) (Tensor, error)

	// Schedule prepares execution over input. A nil Schedule means the work
	// already completed.
	Schedule(input Tensor) (Schedule, error)

	// PeekOutput returns output i of the last execution without transferring
	// ownership, or nil when there is no such output.
	PeekOutput(i int) DeviceTensor

	// Outputs is the number of outputs the model produces.
	Outputs() int

	// Close releases any resources held by the engine.
	Close() error
}
