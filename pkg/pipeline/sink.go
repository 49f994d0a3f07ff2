package pipeline

import (
	"log/slog"

	"github.com/teslashibe/go-anchors/pkg/markers"
)

// Sink is the render collaborator. Render receives the complete marker table
// once per cycle; Retire receives the keys that cycle removed.
type Sink interface {
	Render(snapshot []markers.Snapshot)
	Retire(keys []string)
}

// LogSink logs marker changes.
type LogSink struct {
	Logger *slog.Logger
}

// Render implements Sink.
func (s LogSink) Render(snapshot []markers.Snapshot) {
	for _, m := range snapshot {
		s.logger().Debug("marker",
			"key", m.Key,
			"label", m.Label,
			"x", m.Position.X,
			"y", m.Position.Y,
			"z", m.Position.Z,
			"updates", m.Updates)
	}
}

// Retire implements Sink.
func (s LogSink) Retire(keys []string) {
	if len(keys) > 0 {
		s.logger().Info("markers retired", "keys", keys)
	}
}

func (s LogSink) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// MultiSink fans out to several sinks in order.
type MultiSink []Sink

// Render implements Sink.
func (m MultiSink) Render(snapshot []markers.Snapshot) {
	for _, s := range m {
		s.Render(snapshot)
	}
}

// Retire implements Sink.
func (m MultiSink) Retire(keys []string) {
	for _, s := range m {
		s.Retire(keys)
	}
}

// Deactivator is how a renderer reports a marker it has hidden. *Pipeline
// implements it; the next cycle retires the marker.
type Deactivator interface {
	Deactivate(key string) bool
}
