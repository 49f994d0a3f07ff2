package markers

import "math"

// Config holds tracker policy.
type Config struct {
	// MergeThreshold is the distance in meters under which a detection with an
	// existing key refreshes that marker instead of spawning a new one.
	// Use math.Inf(1) to always merge on key.
	MergeThreshold float64

	// RetireAfter is the number of consecutive missed cycles after which a
	// marker is removed. Zero disables miss-based retirement; markers then
	// leave only through Deactivate or Retire.
	RetireAfter int

	// Smoothing is the weight of the previous position on update, in [0,1).
	// Zero replaces the pose outright.
	Smoothing float64
}

// DefaultConfig returns the object-detection defaults: 20 cm merge radius and
// markers that live only as long as they are seen.
func DefaultConfig() Config {
	return Config{
		MergeThreshold: 0.2,
		RetireAfter:    1,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.MergeThreshold <= 0 || math.IsNaN(c.MergeThreshold) {
		errors = append(errors, "merge_threshold must be positive")
	}
	if c.RetireAfter < 0 {
		errors = append(errors, "retire_after must not be negative")
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		errors = append(errors, "smoothing must be in [0, 1)")
	}

	return errors
}
