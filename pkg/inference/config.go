package inference

import (
	"errors"
	"log/slog"

	"github.com/teslashibe/go-anchors/internal/log"
)

// Config holds engine configuration.
type Config struct {
	// Model
	ModelPath   string   // ONNX model file
	InputSize   int      // square input side in pixels
	OutputNames []string // empty uses the network's default output
	AllOutputs  bool     // with no OutputNames, read every unconnected output layer

	// Placement, as accepted by OpenCV ("default", "opencv", "cuda"; "cpu", "cuda", "fp16")
	Backend string
	Target  string

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring engines.
type Option func(*Config)

// WithModelPath sets the model file.
func WithModelPath(path string) Option {
	return func(c *Config) { c.ModelPath = path }
}

// WithInputSize sets the model input side.
func WithInputSize(n int) Option {
	return func(c *Config) { c.InputSize = n }
}

// WithOutputNames selects the output layers to read.
// Example: "output0" for YOLOv8, "coords", "labels" for a two-output detector.
func WithOutputNames(names ...string) Option {
	return func(c *Config) { c.OutputNames = names }
}

// WithAllOutputs reads every unconnected output layer in network order when
// no names are given. Two-output detectors need this.
func WithAllOutputs() Option {
	return func(c *Config) { c.AllOutputs = true }
}

// WithBackend sets the DNN backend.
func WithBackend(backend string) Option {
	return func(c *Config) { c.Backend = backend }
}

// WithTarget sets the DNN target device.
func WithTarget(target string) Option {
	return func(c *Config) { c.Target = target }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns CPU defaults for a 640px detector.
func DefaultConfig() *Config {
	return &Config{
		ModelPath: "models/yolov8n.onnx",
		InputSize: 640,
		Backend:   "default",
		Target:    "cpu",
		Logger:    log.Component("inference"),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return ErrModelNotFound
	}
	if c.InputSize <= 0 {
		return errors.New("inference: input size must be positive")
	}
	return nil
}
