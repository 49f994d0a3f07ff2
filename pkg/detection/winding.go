package detection

import (
	"math"
	"sort"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// NormalizeWinding reorders corners given in image coordinates into the
// canonical winding: bottom-left, top-left, top-right, bottom-right as seen in
// an upright image. Decoders disagree on where they start and which way they go;
// orientation derivation depends on a fixed order.
//
// Corners are sorted clockwise around their centroid (in y-up terms) and rotated
// so the bottom-left-most corner comes first. The input is not modified.
func NormalizeWinding(corners []geometry.Vec2) []geometry.Vec2 {
	out := make([]geometry.Vec2, len(corners))
	copy(out, corners)
	if len(out) < 3 {
		return out
	}

	var cx, cy float64
	for _, c := range out {
		cx += c.X
		cy += c.Y
	}
	cx /= float64(len(out))
	cy /= float64(len(out))

	// Angles in a y-up frame; descending angle is clockwise.
	angle := func(c geometry.Vec2) float64 {
		return math.Atan2(cy-c.Y, c.X-cx)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return angle(out[i]) > angle(out[j])
	})

	// Bottom-left has the smallest x and the largest image y.
	start := 0
	best := math.Inf(1)
	for i, c := range out {
		if score := c.X - c.Y; score < best {
			best, start = score, i
		}
	}

	rotated := make([]geometry.Vec2, 0, len(out))
	rotated = append(rotated, out[start:]...)
	rotated = append(rotated, out[:start]...)
	return rotated
}
