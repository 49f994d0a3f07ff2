package raycast

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// Surface is a planar patch of the environment. A zero HalfExtent on an axis
// leaves that axis unbounded.
type Surface struct {
	Name   string
	Center r3.Vec
	Normal r3.Vec

	// Up orients the in-plane extent; it need not be orthogonal to Normal.
	Up         r3.Vec
	HalfWidth  float64
	HalfHeight float64
}

// Scene is an in-process environment made of planar surfaces. It stands in for
// a depth-mesh raycast when no device is attached.
type Scene struct {
	surfaces []Surface
	mu       sync.RWMutex
}

// NewScene creates a scene from surfaces.
func NewScene(surfaces ...Surface) *Scene {
	return &Scene{surfaces: surfaces}
}

// Room returns a scene with a floor at y=0 and a wall facing the origin at
// z=depth, both unbounded.
func Room(depth float64) *Scene {
	return NewScene(
		Surface{Name: "floor", Normal: r3.Vec{Y: 1}, Up: r3.Vec{Z: 1}},
		Surface{Name: "wall", Center: r3.Vec{Z: depth}, Normal: r3.Vec{Z: -1}, Up: r3.Vec{Y: 1}},
	)
}

// Add appends a surface.
func (s *Scene) Add(surf Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surfaces = append(s.surfaces, surf)
}

// Surfaces returns a copy of the scene's surfaces.
func (s *Scene) Surfaces() []Surface {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Surface, len(s.surfaces))
	copy(out, s.surfaces)
	return out
}

// Raycast implements Raycaster.
func (s *Scene) Raycast(ray geometry.Ray, maxDistance float64) (Hit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := Hit{Distance: math.Inf(1)}
	found := false
	for _, surf := range s.surfaces {
		hit, ok := surf.intersect(ray)
		if !ok || hit.Distance > maxDistance || hit.Distance >= best.Distance {
			continue
		}
		best, found = hit, true
	}
	return best, found
}

func (surf Surface) intersect(ray geometry.Ray) (Hit, bool) {
	plane, ok := geometry.NewPlane(surf.Center, surf.Normal)
	if !ok {
		return Hit{}, false
	}
	pt, dist, ok := plane.Intersect(ray)
	if !ok {
		return Hit{}, false
	}
	if !surf.contains(plane.Normal, pt) {
		return Hit{}, false
	}

	n := plane.Normal
	if r3.Dot(n, ray.Direction) > 0 {
		n = r3.Scale(-1, n)
	}
	return Hit{Point: pt, Normal: n, Distance: dist}, true
}

func (surf Surface) contains(normal, pt r3.Vec) bool {
	if surf.HalfWidth <= 0 && surf.HalfHeight <= 0 {
		return true
	}
	up, ok := geometry.Normalize(r3.Sub(surf.Up, r3.Scale(r3.Dot(surf.Up, normal), normal)))
	if !ok {
		return true
	}
	right := r3.Cross(up, normal)
	d := r3.Sub(pt, surf.Center)
	if surf.HalfWidth > 0 && math.Abs(r3.Dot(d, right)) > surf.HalfWidth {
		return false
	}
	if surf.HalfHeight > 0 && math.Abs(r3.Dot(d, up)) > surf.HalfHeight {
		return false
	}
	return true
}
