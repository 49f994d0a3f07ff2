// Package pose turns a 2D detection into a world-space marker pose by casting
// rays through its corners into the environment.
package pose

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-anchors/pkg/camera"
	"github.com/teslashibe/go-anchors/pkg/detection"
	"github.com/teslashibe/go-anchors/pkg/geometry"
	"github.com/teslashibe/go-anchors/pkg/markers"
	"github.com/teslashibe/go-anchors/pkg/raycast"
)

// Estimator computes marker poses. It is stateless apart from its config and
// safe for concurrent use.
type Estimator struct {
	config Config
}

// New creates an estimator, filling zero fields from DefaultConfig.
func New(cfg Config) *Estimator {
	def := DefaultConfig()
	if cfg.BoxMode == ModeDefault {
		cfg.BoxMode = def.BoxMode
	}
	if cfg.PolygonMode == ModeDefault {
		cfg.PolygonMode = def.PolygonMode
	}
	if cfg.ScaleMargin <= 0 {
		cfg.ScaleMargin = def.ScaleMargin
	}
	if cfg.MaxDistance <= 0 {
		cfg.MaxDistance = def.MaxDistance
	}
	return &Estimator{config: cfg}
}

// Config returns the estimator config.
func (e *Estimator) Config() Config {
	return e.config
}

// Estimate computes the world pose of det as seen in frame.
func (e *Estimator) Estimate(det detection.Detection, frame camera.Frame, rc raycast.Raycaster) (markers.Pose, error) {
	if det == nil {
		return markers.Pose{}, fmt.Errorf("%w: nil detection", ErrGeometryDegenerate)
	}

	corners := det.Corners()
	if len(corners) < 4 {
		return markers.Pose{}, fmt.Errorf("%w: %d corners", ErrGeometryDegenerate, len(corners))
	}

	rays := make([]geometry.Ray, len(corners))
	var centerUV geometry.Vec2
	for i, c := range corners {
		uv := geometry.ImageToViewport(c)
		rays[i] = frame.Ray(uv)
		centerUV.X += uv.X
		centerUV.Y += uv.Y
	}
	centerUV.X /= float64(len(corners))
	centerUV.Y /= float64(len(corners))

	centerRay := frame.Ray(centerUV)
	centerHit, ok := rc.Raycast(centerRay, e.config.MaxDistance)
	if !ok {
		return markers.Pose{}, ErrRaycastMiss
	}

	isBox := det.Kind() == detection.KindBox
	mode := e.config.PolygonMode
	normal := centerHit.Normal
	if isBox {
		mode = e.config.BoxMode
		normal = r3.Scale(-1, centerRay.Direction)
	}
	plane, ok := geometry.NewPlane(centerHit.Point, normal)
	if !ok {
		plane, _ = geometry.NewPlane(centerHit.Point, r3.Scale(-1, centerRay.Direction))
	}

	fallback := geometry.Distance(centerRay.Origin, centerHit.Point)
	world := make([]r3.Vec, len(rays))
	for i, r := range rays {
		if mode == PerCorner {
			if hit, ok := rc.Raycast(r, e.config.MaxDistance); ok {
				world[i] = hit.Point
				continue
			}
		}
		world[i] = plane.Project(r, fallback)
	}

	rot, err := orientation(world)
	if err != nil {
		return markers.Pose{}, err
	}

	var scale r3.Vec
	if isBox {
		scale = r3.Vec{X: geometry.Distance(world[1], world[2]), Y: geometry.Distance(world[1], world[0]), Z: 1}
	} else {
		m := e.config.ScaleMargin
		scale = r3.Vec{X: geometry.Distance(world[0], world[1]) * m, Y: geometry.Distance(world[0], world[3]) * m, Z: 1}
	}

	return markers.Pose{
		Position: geometry.Mean(world),
		Rotation: rot,
		Scale:    scale,
		Label:    e.label(det),
	}, nil
}

func (e *Estimator) label(det detection.Detection) string {
	switch d := det.(type) {
	case detection.Box:
		return detection.FormatLabel(d.Label, d.Confidence, d.Scored, e.config.MinConfidence)
	case *detection.Box:
		return detection.FormatLabel(d.Label, d.Confidence, d.Scored, e.config.MinConfidence)
	default:
		return det.Key()
	}
}
