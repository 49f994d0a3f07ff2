// Package readback moves inference outputs from the accelerator to the host
// without blocking the caller. A Machine is advanced one step per Tick: it
// schedules the network in bounded chunks, then requests and polls each output
// in turn, delivers the host copies and releases everything it held.
//
//	Idle -> Scheduling -> Awaiting(0) -> Downloading(0) -> ... -> Rendering -> Complete -> Idle
//
// Any output that is missing or loses its backend data aborts the cycle; the
// next Begin starts fresh. There is no timeout and no retry.
package readback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-anchors/pkg/inference"
)

// Deliver receives the host copies of every output. The machine disposes them
// after Deliver returns; keep copies of anything needed later.
type Deliver func(outputs []inference.HostTensor)

// Stats counts cycles by outcome.
type Stats struct {
	Started   int
	Completed int
	Aborted   int
	Rejected  int
}

// Machine is the readback state machine. Its methods are safe to call from
// multiple goroutines, though one driver calling Tick is the intended use.
type Machine struct {
	engine inference.Engine
	config *Config
	logger *slog.Logger

	state    State
	index    int
	input    inference.Tensor
	schedule inference.Schedule
	pending  inference.DeviceTensor
	clones   []inference.HostTensor
	deliver  Deliver
	closed   bool
	stats    Stats
	mu       sync.Mutex
}

// New creates a machine driving engine.
func New(engine inference.Engine, opts ...Option) (*Machine, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if cfg.LayersPerTick <= 0 {
		cfg.LayersPerTick = DefaultConfig().LayersPerTick
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{engine: engine, config: cfg, logger: logger}, nil
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Busy reports whether a cycle is in flight.
func (m *Machine) Busy() bool {
	return m.State() != StateIdle
}

// Stats returns the cycle counters.
func (m *Machine) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Begin admits a new cycle over input. The machine owns input from here on and
// disposes it when the cycle ends. While a cycle is in flight Begin returns
// ErrAdmissionRejected and input stays with the caller.
func (m *Machine) Begin(input inference.Tensor, deliver Deliver) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state != StateIdle {
		m.stats.Rejected++
		return ErrAdmissionRejected
	}

	sched, err := m.engine.Schedule(input)
	if err != nil {
		if input != nil {
			input.Dispose()
		}
		return fmt.Errorf("readback: schedule: %w", err)
	}

	m.input = input
	m.schedule = sched
	m.deliver = deliver
	m.index = 0
	m.state = StateScheduling
	m.stats.Started++
	return nil
}

// Tick advances the cycle by one step and returns the resulting state. A
// non-nil error means the cycle was aborted and the machine is idle again.
func (m *Machine) Tick() (State, error) {
	m.mu.Lock()

	switch m.state {
	case StateIdle:

	case StateScheduling:
		done := m.schedule == nil
		for i := 0; !done && i < m.config.LayersPerTick; i++ {
			done = !m.schedule.Step()
		}
		if done {
			m.schedule = nil
			m.awaitNext()
		}

	case StateAwaiting:
		t := m.engine.PeekOutput(m.index)
		if t == nil || !t.OnBackend() {
			return m.abort(ErrBackendDataUnavailable)
		}
		t.RequestReadback()
		m.pending = t
		m.state = StateDownloading

	case StateDownloading:
		if !m.pending.OnBackend() {
			return m.abort(ErrBackendDataUnavailable)
		}
		if !m.pending.ReadbackDone() {
			break
		}
		host, err := m.pending.ReadbackAndClone()
		if err != nil {
			return m.abort(fmt.Errorf("%w: %v", ErrBackendDataUnavailable, err))
		}
		if host == nil {
			return m.abort(ErrBackendDataUnavailable)
		}
		m.clones = append(m.clones, host)
		m.pending = nil
		m.index++
		m.awaitNext()

	case StateRendering:
		deliver, clones := m.deliver, m.clones
		m.state = StateComplete
		m.mu.Unlock()
		if deliver != nil {
			deliver(clones)
		}
		return StateComplete, nil

	case StateComplete:
		m.release()
		m.stats.Completed++
		m.state = StateIdle
	}

	state := m.state
	m.mu.Unlock()
	return state, nil
}

// awaitNext moves to the next output, or to Rendering after the last one.
func (m *Machine) awaitNext() {
	if m.index >= m.engine.Outputs() {
		m.state = StateRendering
		return
	}
	m.state = StateAwaiting
}

// abort ends the cycle, releasing everything. It unlocks m.mu.
func (m *Machine) abort(cause error) (State, error) {
	err := &TensorError{Index: m.index, State: m.state, Err: cause}
	m.release()
	m.stats.Aborted++
	m.state = StateIdle
	m.mu.Unlock()

	m.logger.Warn("readback aborted", "output", err.Index, "state", err.State.String(), "error", cause)
	return StateIdle, err
}

func (m *Machine) release() {
	if m.input != nil {
		m.input.Dispose()
		m.input = nil
	}
	for _, c := range m.clones {
		c.Dispose()
	}
	m.clones = nil
	m.pending = nil
	m.schedule = nil
	m.deliver = nil
	m.index = 0
}

// Run ticks until the machine is idle again or maxTicks is reached, and
// reports whether the cycle finished.
func (m *Machine) Run(maxTicks int) (bool, error) {
	for i := 0; i < maxTicks; i++ {
		state, err := m.Tick()
		if err != nil {
			return true, err
		}
		if state == StateIdle {
			return true, nil
		}
	}
	return !m.Busy(), nil
}

// Close cancels any in-flight cycle, releasing every tensor it holds, and
// refuses further cycles.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		m.logger.Debug("readback cancelled", "state", m.state.String(), "output", m.index)
		m.release()
		m.state = StateIdle
	}
	m.closed = true
	return nil
}
