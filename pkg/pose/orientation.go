package pose

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// orientation derives a rotation from world corners in canonical winding
// (bottom-left, top-left, top-right, bottom-right). The resulting +z axis points
// into the surface, away from the viewer, and +y runs up the marker.
func orientation(c []r3.Vec) (quat.Number, error) {
	up, ok := geometry.Normalize(r3.Sub(c[1], c[0]))
	if !ok {
		return geometry.Identity, fmt.Errorf("%w: coincident bottom corners", ErrGeometryDegenerate)
	}
	right, ok := geometry.Normalize(r3.Sub(c[2], c[1]))
	if !ok {
		return geometry.Identity, fmt.Errorf("%w: coincident top corners", ErrGeometryDegenerate)
	}
	n, ok := geometry.Normalize(r3.Cross(up, right))
	if !ok {
		return geometry.Identity, fmt.Errorf("%w: collinear corners", ErrGeometryDegenerate)
	}

	rot, ok := geometry.LookRotation(r3.Scale(-1, n), up)
	if !ok {
		return geometry.Identity, fmt.Errorf("%w: no orientation", ErrGeometryDegenerate)
	}
	return rot, nil
}
