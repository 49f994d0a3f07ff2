package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"
)

// Plane is an infinite plane through Point with unit Normal.
type Plane struct {
	Point  r3.Vec
	Normal r3.Vec
}

// NewPlane builds a plane, normalizing n. It reports false for a zero normal.
func NewPlane(p, n r3.Vec) (Plane, bool) {
	u, ok := Normalize(n)
	if !ok {
		return Plane{}, false
	}
	return Plane{Point: p, Normal: u}, true
}

// Intersect returns where r crosses the plane and the distance along r.
// Rays parallel to the plane, or pointing away from it, do not intersect.
func (p Plane) Intersect(r Ray) (r3.Vec, float64, bool) {
	denom := r3.Dot(r.Direction, p.Normal)
	if scalar.EqualWithinAbs(denom, 0, epsilon) {
		return r3.Vec{}, 0, false
	}
	t := r3.Dot(r3.Sub(p.Point, r.Origin), p.Normal) / denom
	if t <= 0 || math.IsNaN(t) {
		return r3.Vec{}, 0, false
	}
	return r.At(t), t, true
}

// Project intersects r with the plane, falling back to the point at fallback
// distance along the ray when there is no forward intersection.
func (p Plane) Project(r Ray, fallback float64) r3.Vec {
	if pt, _, ok := p.Intersect(r); ok {
		return pt
	}
	return r.At(fallback)
}
