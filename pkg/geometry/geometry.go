// Package geometry holds the camera model shared by every anchoring path:
// intrinsics, sensor crop correction, viewport-to-world rays and the small amount
// of rigid-body math the pose estimator needs.
//
// Conventions: camera space is x right, y up, z forward. Viewport coordinates are
// normalized to [0,1] with the origin at the bottom-left; image coordinates (what
// detectors and decoders report) have the origin at the top-left with y down.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Unbounded is the default maximum raycast distance.
var Unbounded = math.Inf(1)

// epsilon below which lengths and denominators are treated as zero.
const epsilon = 1e-9

// Vec2 is a 2D point or vector.
type Vec2 struct {
	X, Y float64
}

// Resolution is a pixel size.
type Resolution struct {
	Width, Height int
}

// IsZero reports whether either dimension is unknown.
func (r Resolution) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Rect is an axis-aligned rectangle in sensor pixels.
type Rect struct {
	X, Y, Width, Height float64
}

// Intrinsics is the pinhole calibration of a camera.
type Intrinsics struct {
	FocalLength      Vec2       // fx, fy in sensor pixels
	PrincipalPoint   Vec2       // cx, cy in sensor pixels
	SensorResolution Resolution // native sensor size; zero when unknown
}

// Pose is a rigid transform: world position plus orientation.
type Pose struct {
	Position r3.Vec
	Rotation quat.Number
}

// Identity is the unit quaternion.
var Identity = quat.Number{Real: 1}

// IdentityPose is a pose at the origin looking down +z.
var IdentityPose = Pose{Rotation: Identity}

// Ray is a half-line. Direction is unit length.
type Ray struct {
	Origin    r3.Vec
	Direction r3.Vec
}

// At returns the point at distance d along the ray.
func (r Ray) At(d float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(d, r.Direction))
}

// Mean returns the centroid of pts. It returns the zero vector for no points.
func Mean(pts []r3.Vec) r3.Vec {
	if len(pts) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, p := range pts {
		sum = r3.Add(sum, p)
	}
	return r3.Scale(1/float64(len(pts)), sum)
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// Normalize returns the unit vector along v and false when v has no length.
func Normalize(v r3.Vec) (r3.Vec, bool) {
	n := r3.Norm(v)
	if n < epsilon || math.IsNaN(n) {
		return r3.Vec{}, false
	}
	return r3.Scale(1/n, v), true
}

// clamp01 limits v to [0,1].
func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
