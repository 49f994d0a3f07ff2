// Package anchors wires the anchoring pipeline into a runnable application:
// a frame source, a raycast environment, a detector loop and the dashboard.
package anchors

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/teslashibe/go-anchors/internal/config"
	"github.com/teslashibe/go-anchors/pkg/camera"
	"github.com/teslashibe/go-anchors/pkg/detection"
	"github.com/teslashibe/go-anchors/pkg/pose"
)

// Detection modes.
const (
	ModeObjects = "objects"
	ModeQR      = "qr"
)

// Output decoders for object mode.
const (
	DecoderYOLOv8    = "yolov8"
	DecoderTwoOutput = "two-output"
)

// Config holds all configuration for the anchors application.
// Flag parsing is done in cmd/anchors/main.go; this struct is data only.
type Config struct {
	// Mode selects the detector loop: "objects" or "qr".
	Mode string

	// Frame source.
	Images []string
	Preset string

	// Object detection.
	ModelPath     string
	Decoder       string
	OutputNames   []string // output layers to read; empty picks them per decoder
	Backend       string
	Target        string
	LayersPerTick int
	Labels        []string
	MinConfidence float64

	// QR decoding.
	SampleFactor int
	QRMultiple   bool // decode every code in a frame

	// Anchoring.
	BoxMode   string
	RoomDepth float64 // distance to the wall the simulated room places ahead

	// DetectInterval overrides the mode default when positive.
	DetectInterval time.Duration

	// DashboardPort serves the marker dashboard; empty disables it.
	DashboardPort string

	LogLevel string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Mode:          ModeObjects,
		Preset:        camera.PresetDefault,
		ModelPath:     config.DefaultModelPath,
		Decoder:       DecoderYOLOv8,
		Backend:       "default",
		Target:        "cpu",
		LayersPerTick: 20,
		MinConfidence: 0.15,
		SampleFactor:  detection.DefaultQRConfig().SampleFactor,
		BoxMode:       pose.CenterOnly.String(),
		RoomDepth:     2,
		DashboardPort: config.DefaultDashboardPort,
		LogLevel:      config.DefaultLogLevel,
	}
}

// LoadEnvConfig applies environment overrides. Call it after flag parsing;
// values already changed by flags win.
func (c *Config) LoadEnvConfig() {
	def := DefaultConfig()
	if c.ModelPath == def.ModelPath {
		c.ModelPath = config.ModelPath(c.ModelPath)
	}
	if c.DashboardPort == def.DashboardPort {
		c.DashboardPort = config.DashboardPort()
	}
	if c.LogLevel == def.LogLevel {
		c.LogLevel = config.LogLevel()
	}
	if c.MinConfidence == def.MinConfidence {
		c.MinConfidence = config.Float("ANCHORS_MIN_CONFIDENCE", c.MinConfidence)
	}
	if c.RoomDepth == def.RoomDepth {
		c.RoomDepth = config.Float("ANCHORS_ROOM_DEPTH", c.RoomDepth)
	}
	if len(c.Labels) == 0 {
		c.Labels = SplitList(os.Getenv("ANCHORS_LABELS"))
	}
}

// Validate checks that the configuration can be run.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeObjects:
		if c.ModelPath == "" {
			return &ConfigError{Field: "ModelPath", Message: "a model path is required in objects mode"}
		}
		if c.Decoder != DecoderYOLOv8 && c.Decoder != DecoderTwoOutput {
			return &ConfigError{Field: "Decoder", Message: "decoder must be yolov8 or two-output"}
		}
		if n := len(c.OutputNames); n > 0 && n != c.decoderOutputs() {
			return &ConfigError{Field: "OutputNames", Message: fmt.Sprintf("%s decoder reads %d outputs, got %d names", c.Decoder, c.decoderOutputs(), n)}
		}
		if c.LayersPerTick <= 0 {
			return &ConfigError{Field: "LayersPerTick", Message: "layers per tick must be positive"}
		}
	case ModeQR:
		if c.SampleFactor < 1 {
			return &ConfigError{Field: "SampleFactor", Message: "sample factor must be at least 1"}
		}
	default:
		return &ConfigError{Field: "Mode", Message: "mode must be objects or qr"}
	}
	if len(c.Images) == 0 {
		return &ConfigError{Field: "Images", Message: "at least one image is required"}
	}
	if camera.GetPreset(c.Preset) == nil {
		return &ConfigError{Field: "Preset", Message: "unknown camera preset " + c.Preset}
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return &ConfigError{Field: "MinConfidence", Message: "min confidence must be between 0 and 1"}
	}
	if c.RoomDepth <= 0 {
		return &ConfigError{Field: "RoomDepth", Message: "room depth must be positive"}
	}
	return nil
}

func (c *Config) decoderOutputs() int {
	if c.Decoder == DecoderTwoOutput {
		return 2
	}
	return 1
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
