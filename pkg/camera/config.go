// Package camera defines the camera collaborator the anchoring pipeline consumes
// and the per-cycle frame snapshot it captures from it.
package camera

import (
	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// Config describes a camera's capture resolution and calibration.
// It is the serializable form of geometry.Intrinsics plus the stream size.
type Config struct {
	// === Capture stream ===
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// === Sensor calibration ===
	// Native sensor size. Zero disables crop correction.
	SensorWidth  int `json:"sensor_width"`
	SensorHeight int `json:"sensor_height"`

	// Focal length and principal point in sensor pixels.
	FocalX     float64 `json:"focal_x"`
	FocalY     float64 `json:"focal_y"`
	PrincipalX float64 `json:"principal_x"`
	PrincipalY float64 `json:"principal_y"`
}

// Limits for validation.
const (
	MaxWidth     = 8192
	MaxHeight    = 8192
	MaxFramerate = 240
)

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetSquare   = "square640"
	PresetHeadset  = "headset"
	PresetHeadset4 = "headset-quarter"
)

// DefaultConfig returns a 1280x960 passthrough-style camera streaming at the
// native sensor resolution.
func DefaultConfig() Config {
	return Config{
		Width:        1280,
		Height:       960,
		Framerate:    30,
		SensorWidth:  1280,
		SensorHeight: 960,
		FocalX:       868,
		FocalY:       868,
		PrincipalX:   640,
		PrincipalY:   480,
	}
}

// SquareConfig returns a 640x640 camera with a centered principal point.
// Handy for tests: the model input and the capture share a coordinate space.
func SquareConfig() Config {
	return Config{
		Width:        640,
		Height:       640,
		Framerate:    30,
		SensorWidth:  640,
		SensorHeight: 640,
		FocalX:       320,
		FocalY:       320,
		PrincipalX:   320,
		PrincipalY:   320,
	}
}

// HeadsetConfig streams 16:9 from a 4:3 sensor, which exercises crop correction.
func HeadsetConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	quarter := HeadsetConfig()
	quarter.Width, quarter.Height = 640, 360

	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetSquare:   SquareConfig(),
		PresetHeadset:  HeadsetConfig(),
		PresetHeadset4: quarter,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// Intrinsics converts the calibration to the geometry model.
func (c Config) Intrinsics() geometry.Intrinsics {
	return geometry.Intrinsics{
		FocalLength:      geometry.Vec2{X: c.FocalX, Y: c.FocalY},
		PrincipalPoint:   geometry.Vec2{X: c.PrincipalX, Y: c.PrincipalY},
		SensorResolution: geometry.Resolution{Width: c.SensorWidth, Height: c.SensorHeight},
	}
}

// Resolution returns the capture stream size.
func (c Config) Resolution() geometry.Resolution {
	return geometry.Resolution{Width: c.Width, Height: c.Height}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 1 || c.Width > MaxWidth {
		errors = append(errors, "width must be between 1 and 8192")
	}
	if c.Height < 1 || c.Height > MaxHeight {
		errors = append(errors, "height must be between 1 and 8192")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 240")
	}

	// Sensor size is optional but must be given as a pair
	if (c.SensorWidth == 0) != (c.SensorHeight == 0) {
		errors = append(errors, "sensor_width and sensor_height must both be set or both be zero")
	}
	if c.SensorWidth < 0 || c.SensorHeight < 0 {
		errors = append(errors, "sensor size must not be negative")
	}

	if c.FocalX <= 0 || c.FocalY <= 0 {
		errors = append(errors, "focal length must be positive")
	}

	return errors
}
