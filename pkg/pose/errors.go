package pose

import "errors"

// Per-detection failures. The detection is skipped; the cycle goes on.
var (
	// ErrGeometryDegenerate means the corners cannot define a pose: too few of
	// them, or coincident/collinear points.
	ErrGeometryDegenerate = errors.New("pose: degenerate geometry")

	// ErrRaycastMiss means the center ray hit no surface.
	ErrRaycastMiss = errors.New("pose: center raycast missed")
)
