package pipeline

import (
	"math"
	"time"

	"github.com/teslashibe/go-anchors/pkg/detection"
	"github.com/teslashibe/go-anchors/pkg/markers"
	"github.com/teslashibe/go-anchors/pkg/pose"
)

// Config holds pipeline configuration.
type Config struct {
	Filter  detection.Filter
	Pose    pose.Config
	Markers markers.Config

	// === Loop timing ===
	TickInterval   time.Duration // readback state machine tick
	DetectInterval time.Duration // how often a new cycle is attempted
}

// DefaultConfig returns the object-detection defaults.
func DefaultConfig() Config {
	return Config{
		Filter:         detection.Filter{MinConfidence: 0.15},
		Pose:           pose.DefaultConfig(),
		Markers:        markers.DefaultConfig(),
		TickInterval:   10 * time.Millisecond,
		DetectInterval: 100 * time.Millisecond,
	}
}

// QRConfig returns the QR tracking defaults. A payload is unique, so markers
// merge on key at any distance and survive a short run of missed scans.
func QRConfig() Config {
	cfg := DefaultConfig()
	cfg.Filter = detection.Filter{}
	cfg.Markers = markers.Config{
		MergeThreshold: math.Inf(1),
		RetireAfter:    30,
	}
	cfg.DetectInterval = 200 * time.Millisecond
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Filter.MinConfidence < 0 || c.Filter.MinConfidence > 1 {
		errors = append(errors, "filter min_confidence must be between 0 and 1")
	}
	errors = append(errors, c.Pose.Validate()...)
	errors = append(errors, c.Markers.Validate()...)
	if c.TickInterval <= 0 {
		errors = append(errors, "tick_interval must be positive")
	}
	if c.DetectInterval <= 0 {
		errors = append(errors, "detect_interval must be positive")
	}

	return errors
}
