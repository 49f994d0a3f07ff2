package inference

import (
	"sync"
	"time"
)

// MockOutput scripts one output of a Mock engine.
type MockOutput struct {
	Shape []int
	Data  []float32

	// Missing makes PeekOutput return nil.
	Missing bool

	// OffBackend reports no backend data from the start.
	OffBackend bool

	// DropAfterRequest loses backend data once readback is requested.
	DropAfterRequest bool

	// PendingPolls is how many times ReadbackDone reports false first.
	PendingPolls int

	// CloneErr fails ReadbackAndClone.
	CloneErr error
}

// Mock implements Engine for testing. It counts live tensor handles so tests
// can assert nothing leaks.
type Mock struct {
	// Script holds one entry per output.
	Script []MockOutput

	// Steps is how many Step calls an execution takes. Zero completes inside
	// Schedule and returns a nil Schedule.
	Steps int

	// ScheduleErr fails Schedule.
	ScheduleErr error

	// InputErr fails Input.
	InputErr error

	mu      sync.Mutex
	calls   []MockCall
	live    int
	steps   int
	devices []*mockDevice
	closed  bool
}

// MockCall records a method invocation.
type MockCall struct {
	Method string
	Time   time.Time
}

// NewMock creates a mock engine with the given outputs.
func NewMock(outputs ...MockOutput) *Mock {
	return &Mock{Script: outputs}
}

// Input returns a tracked placeholder tensor.
func (m *Mock) Input(jpeg []byte) (Tensor, error) {
	m.record("Input")
	if m.InputErr != nil {
		return nil, m.InputErr
	}
	return m.track([]int{1, 3, len(jpeg)}, nil), nil
}

// Schedule implements Engine.
func (m *Mock) Schedule(input Tensor) (Schedule, error) {
	m.record("Schedule")
	if m.ScheduleErr != nil {
		return nil, m.ScheduleErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if b, ok := input.(*Buffer); ok && b.Disposed() {
		return nil, ErrDisposed
	}

	m.devices = make([]*mockDevice, len(m.Script))
	for i := range m.Script {
		out := m.Script[i]
		m.devices[i] = &mockDevice{mock: m, out: out, onBackend: !out.OffBackend}
	}

	if m.Steps <= 0 {
		return nil, nil
	}
	return &mockSchedule{mock: m, total: m.Steps}, nil
}

type mockSchedule struct {
	mock  *Mock
	total int
	done  int
}

func (s *mockSchedule) Step() bool {
	s.mock.mu.Lock()
	s.mock.steps++
	s.mock.mu.Unlock()

	s.done++
	return s.done < s.total
}

// PeekOutput implements Engine.
func (m *Mock) PeekOutput(i int) DeviceTensor {
	m.record("PeekOutput")

	m.mu.Lock()
	defer m.mu.Unlock()

	if i < 0 || i >= len(m.devices) || m.devices[i].out.Missing {
		return nil
	}
	return m.devices[i]
}

// Outputs implements Engine.
func (m *Mock) Outputs() int {
	return len(m.Script)
}

// Close implements Engine.
func (m *Mock) Close() error {
	m.record("Close")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Live returns the number of tensors created by the mock and not yet disposed.
func (m *Mock) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// StepCount returns the total number of Step calls across executions.
func (m *Mock) StepCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps
}

func (m *Mock) track(shape []int, data []float32) *Buffer {
	m.mu.Lock()
	m.live++
	m.mu.Unlock()

	b := NewBuffer(shape, data)
	b.onDispose = func() {
		m.mu.Lock()
		m.live--
		m.mu.Unlock()
	}
	return b
}

// record adds a call to the tracking list.
func (m *Mock) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method: method,
		Time:   time.Now(),
	})
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// mockDevice is a scripted device tensor. The engine owns it.
type mockDevice struct {
	mock      *Mock
	out       MockOutput
	onBackend bool
	requested bool
	polls     int
}

func (d *mockDevice) Shape() []int { return append([]int(nil), d.out.Shape...) }

func (d *mockDevice) Dispose() {}

func (d *mockDevice) OnBackend() bool {
	d.mock.mu.Lock()
	defer d.mock.mu.Unlock()
	return d.onBackend
}

func (d *mockDevice) RequestReadback() {
	d.mock.record("RequestReadback")
	d.mock.mu.Lock()
	defer d.mock.mu.Unlock()
	d.requested = true
	if d.out.DropAfterRequest {
		d.onBackend = false
	}
}

func (d *mockDevice) ReadbackDone() bool {
	d.mock.mu.Lock()
	defer d.mock.mu.Unlock()
	if !d.requested {
		return false
	}
	d.polls++
	return d.polls > d.out.PendingPolls
}

func (d *mockDevice) ReadbackAndClone() (HostTensor, error) {
	d.mock.record("ReadbackAndClone")
	if d.out.CloneErr != nil {
		return nil, d.out.CloneErr
	}
	data := make([]float32, len(d.out.Data))
	copy(data, d.out.Data)
	return d.mock.track(d.out.Shape, data), nil
}

// Verify Mock implements Engine at compile time.
var _ Engine = (*Mock)(nil)
