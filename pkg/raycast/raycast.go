// Package raycast is the environment intersection service: given a world ray it
// reports the nearest surface hit, if any.
package raycast

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// Hit is a ray/surface intersection.
type Hit struct {
	Point    r3.Vec
	Normal   r3.Vec // unit, facing the ray origin
	Distance float64
}

// Raycaster finds the nearest forward hit along a ray within maxDistance.
// Pass geometry.Unbounded for no limit.
type Raycaster interface {
	Raycast(ray geometry.Ray, maxDistance float64) (Hit, bool)
}

// Func adapts a function to Raycaster.
type Func func(ray geometry.Ray, maxDistance float64) (Hit, bool)

// Raycast implements Raycaster.
func (f Func) Raycast(ray geometry.Ray, maxDistance float64) (Hit, bool) {
	return f(ray, maxDistance)
}
