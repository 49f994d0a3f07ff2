package raycast

import (
	"sync"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// Mock is a Raycaster for testing. RaycastFunc decides the result; without it
// every ray misses.
type Mock struct {
	RaycastFunc func(ray geometry.Ray, maxDistance float64) (Hit, bool)

	mu    sync.Mutex
	calls []geometry.Ray
}

// Raycast implements Raycaster.
func (m *Mock) Raycast(ray geometry.Ray, maxDistance float64) (Hit, bool) {
	m.mu.Lock()
	m.calls = append(m.calls, ray)
	m.mu.Unlock()

	if m.RaycastFunc != nil {
		return m.RaycastFunc(ray, maxDistance)
	}
	return Hit{}, false
}

// Calls returns the rays cast so far.
func (m *Mock) Calls() []geometry.Ray {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]geometry.Ray, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns the number of raycasts.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

var _ Raycaster = (*Mock)(nil)
var _ Raycaster = (*Scene)(nil)
var _ Raycaster = Func(nil)
