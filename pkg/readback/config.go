package readback

import (
	"log/slog"

	"github.com/teslashibe/go-anchors/internal/log"
)

// Config holds machine configuration.
type Config struct {
	// LayersPerTick bounds how many schedule steps run in one tick.
	LayersPerTick int

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring the machine.
type Option func(*Config)

// WithLayersPerTick sets the per-tick scheduling budget.
func WithLayersPerTick(n int) Option {
	return func(c *Config) { c.LayersPerTick = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the defaults.
func DefaultConfig() *Config {
	return &Config{
		LayersPerTick: 20,
		Logger:        log.Component("readback"),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
