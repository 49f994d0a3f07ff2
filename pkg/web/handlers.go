package web

import (
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-anchors/pkg/pipeline"
)

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Pipeline    pipeline.Stats `json:"pipeline"`
	Subscribers int            `json:"subscribers"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// sourceOr503 returns the marker source or writes a 503.
func (s *Server) sourceOr503(c *fiber.Ctx) (MarkerSource, error) {
	src := s.markerSource()
	if src == nil {
		return nil, c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "no marker source",
		})
	}
	return src, nil
}

func (s *Server) handleListMarkers(c *fiber.Ctx) error {
	src, err := s.sourceOr503(c)
	if src == nil {
		return err
	}
	return c.JSON(src.Markers())
}

func (s *Server) handleGetMarker(c *fiber.Ctx) error {
	src, err := s.sourceOr503(c)
	if src == nil {
		return err
	}
	key := c.Params("key")
	for _, m := range src.Markers() {
		if m.Key == key {
			return c.JSON(m)
		}
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "marker not found",
		"key":   key,
	})
}

// handleDeactivate hides a marker; the next cycle retires it.
func (s *Server) handleDeactivate(c *fiber.Ctx) error {
	src, err := s.sourceOr503(c)
	if src == nil {
		return err
	}
	key := c.Params("key", c.Query("key"))
	if !src.Deactivate(key) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "marker not found",
			"key":   key,
		})
	}
	s.logger.Info("marker deactivated", "key", key)
	return c.JSON(fiber.Map{"key": key, "deactivated": true})
}

func (s *Server) handleResetMarkers(c *fiber.Ctx) error {
	src, err := s.sourceOr503(c)
	if src == nil {
		return err
	}
	keys := src.Reset()
	if keys == nil {
		keys = []string{}
	}
	return c.JSON(fiber.Map{"retired": keys})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	src, err := s.sourceOr503(c)
	if src == nil {
		return err
	}
	return c.JSON(StatsResponse{
		Pipeline:    src.Stats(),
		Subscribers: s.hub.ClientCount(),
	})
}
