package inference

import "sync"

// Buffer is a HostTensor backed by a Go slice.
type Buffer struct {
	shape []int
	data  []float32

	once      sync.Once
	disposed  bool
	onDispose func()
}

// NewBuffer wraps data with the given shape.
func NewBuffer(shape []int, data []float32) *Buffer {
	return &Buffer{shape: append([]int(nil), shape...), data: data}
}

// Shape implements Tensor.
func (b *Buffer) Shape() []int {
	return append([]int(nil), b.shape...)
}

// Float32s implements HostTensor.
func (b *Buffer) Float32s() []float32 {
	return b.data
}

// Dispose implements Tensor.
func (b *Buffer) Dispose() {
	b.once.Do(func() {
		b.data = nil
		b.disposed = true
		if b.onDispose != nil {
			b.onDispose()
		}
	})
}

// Disposed reports whether Dispose has been called.
func (b *Buffer) Disposed() bool {
	return b.disposed
}

// Elements returns the product of dims.
func Elements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
