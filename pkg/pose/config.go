package pose

import (
	"math"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// RaycastMode selects how corner points are resolved in the world.
type RaycastMode int

const (
	// ModeDefault picks the per-kind default: PerCorner for polygons,
	// CenterOnly for boxes.
	ModeDefault RaycastMode = iota

	// PerCorner raycasts every corner and falls back to the supporting plane
	// for corners that miss.
	PerCorner

	// CenterOnly projects every corner onto the supporting plane.
	CenterOnly
)

func (m RaycastMode) String() string {
	switch m {
	case PerCorner:
		return "per-corner"
	case CenterOnly:
		return "center-only"
	default:
		return "default"
	}
}

// ParseRaycastMode converts a flag value to a mode.
func ParseRaycastMode(s string) RaycastMode {
	switch s {
	case "per-corner", "percorner":
		return PerCorner
	case "center-only", "center", "centeronly":
		return CenterOnly
	default:
		return ModeDefault
	}
}

// Config holds estimator parameters.
type Config struct {
	BoxMode     RaycastMode
	PolygonMode RaycastMode

	// ScaleMargin enlarges polygon markers so they frame the code.
	ScaleMargin float64

	// MinConfidence is the threshold at which box labels show a percentage.
	MinConfidence float64

	// MaxDistance limits raycasts, in meters.
	MaxDistance float64
}

// DefaultConfig returns the estimator defaults.
func DefaultConfig() Config {
	return Config{
		BoxMode:       CenterOnly,
		PolygonMode:   PerCorner,
		ScaleMargin:   1.5,
		MinConfidence: 0.15,
		MaxDistance:   geometry.Unbounded,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.ScaleMargin <= 0 || math.IsNaN(c.ScaleMargin) {
		errors = append(errors, "scale_margin must be positive")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errors = append(errors, "min_confidence must be between 0 and 1")
	}
	if c.MaxDistance <= 0 || math.IsNaN(c.MaxDistance) {
		errors = append(errors, "max_distance must be positive")
	}

	return errors
}
