// Package web serves the marker dashboard: a small JSON API over the marker
// table and a websocket stream that mirrors every render cycle.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-anchors/internal/log"
	"github.com/teslashibe/go-anchors/pkg/hub"
	"github.com/teslashibe/go-anchors/pkg/markers"
	"github.com/teslashibe/go-anchors/pkg/pipeline"
)

// MarkerSource is the marker table the API reads and edits. *pipeline.Pipeline
// satisfies it.
type MarkerSource interface {
	Markers() []markers.Snapshot
	Stats() pipeline.Stats
	Reset() []string
	pipeline.Deactivator
}

// Event types on the marker stream.
const (
	EventMarkers = "markers"
	EventRetired = "retired"
)

// MarkersEvent carries the full marker table after a cycle.
type MarkersEvent struct {
	Type    string             `json:"type"`
	Time    time.Time          `json:"time"`
	Markers []markers.Snapshot `json:"markers"`
}

// RetiredEvent lists the keys a cycle removed.
type RetiredEvent struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Keys []string  `json:"keys"`
}

// Server is the dashboard server. It is also a pipeline.Sink.
type Server struct {
	app    *fiber.App
	port   string
	hub    *hub.Hub
	logger *slog.Logger

	source   MarkerSource
	sourceMu sync.RWMutex

	now func() time.Time
}

var _ pipeline.Sink = (*Server)(nil)

// NewServer creates a dashboard listening on port. source may be nil and set
// later with SetSource; the API answers 503 until then.
func NewServer(port string, source MarkerSource) *Server {
	s := &Server{
		port:   port,
		hub:    hub.New("markers"),
		logger: log.Component("web"),
		source: source,
		now:    time.Now,
	}

	app := fiber.New(fiber.Config{
		AppName:               "Anchors Dashboard",
		DisableStartupMessage: true,
		UnescapePath:          true,
	})

	app.Use(cors.New())

	app.Get("/healthz", s.handleHealth)

	api := app.Group("/api")
	api.Get("/markers", s.handleListMarkers)
	api.Delete("/markers", s.handleResetMarkers)
	api.Get("/markers/:key", s.handleGetMarker)
	api.Post("/markers/:key/deactivate", s.handleDeactivate)
	api.Post("/deactivate", s.handleDeactivate) // ?key=, for keys containing '/'
	api.Get("/stats", s.handleStats)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/markers", websocket.New(s.hub.Serve))

	s.app = app
	return s
}

// SetSource attaches the marker table.
func (s *Server) SetSource(src MarkerSource) {
	s.sourceMu.Lock()
	s.source = src
	s.sourceMu.Unlock()
}

func (s *Server) markerSource() MarkerSource {
	s.sourceMu.RLock()
	defer s.sourceMu.RUnlock()
	return s.source
}

// SetLogger replaces the server and hub loggers.
func (s *Server) SetLogger(l *slog.Logger) {
	s.logger = l
	s.hub.SetLogger(l.With("hub", s.hub.Name()))
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Hub returns the marker stream hub.
func (s *Server) Hub() *hub.Hub { return s.hub }

// Start runs the hub and serves until the listener fails or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("dashboard listening", "url", "http://localhost:"+s.port)

	go s.hub.Run(ctx)
	go func() {
		<-ctx.Done()
		s.app.Shutdown()
	}()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine and logs a listener failure.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("dashboard stopped", "error", err)
		}
	}()
}

// Render implements pipeline.Sink. The table is retained so new subscribers
// start from the current state.
func (s *Server) Render(snapshot []markers.Snapshot) {
	if snapshot == nil {
		snapshot = []markers.Snapshot{}
	}
	if err := s.hub.PublishJSON(MarkersEvent{Type: EventMarkers, Time: s.now(), Markers: snapshot}); err != nil {
		s.logger.Warn("encode markers", "error", err)
	}
}

// Retire implements pipeline.Sink.
func (s *Server) Retire(keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := s.hub.BroadcastJSON(RetiredEvent{Type: EventRetired, Time: s.now(), Keys: keys}); err != nil {
		s.logger.Warn("encode retired", "error", err)
	}
}

// Shutdown stops the HTTP server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
