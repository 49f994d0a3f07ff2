// Package detection describes what a 2D detector or decoder found in a frame and
// decides which of those findings are worth anchoring.
//
// Coordinates are normalized image coordinates: [0,1] on both axes, origin at the
// top-left, y down. Box detections keep model pixels and carry the model input
// size so they can be normalized later.
package detection

import (
	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// Kind distinguishes the detection variants.
type Kind int

const (
	KindBox Kind = iota
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindBox:
		return "box"
	case KindPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Detection is a single object or code found in one frame.
type Detection interface {
	Kind() Kind

	// Key is the identity the tracker groups detections by.
	Key() string

	// Corners returns normalized image coordinates in canonical winding:
	// bottom-left, top-left, top-right, bottom-right.
	Corners() []geometry.Vec2
}

// Box is an axis-aligned bounding box from an object detector, in model pixels.
type Box struct {
	CenterX, CenterY float64
	Width, Height    float64
	InputSize        float64 // square model input side in pixels

	Label      string
	Confidence float64
	Scored     bool // false when the model reports no confidence
}

// Kind implements Detection.
func (b Box) Kind() Kind { return KindBox }

// Key implements Detection.
func (b Box) Key() string { return b.Label }

// Corners implements Detection.
func (b Box) Corners() []geometry.Vec2 {
	size := b.InputSize
	if size <= 0 {
		size = 1
	}
	x1 := (b.CenterX - b.Width/2) / size
	y1 := (b.CenterY - b.Height/2) / size
	x2 := (b.CenterX + b.Width/2) / size
	y2 := (b.CenterY + b.Height/2) / size

	return []geometry.Vec2{
		{X: x1, Y: y2},
		{X: x1, Y: y1},
		{X: x2, Y: y1},
		{X: x2, Y: y2},
	}
}

// Center returns the normalized box center.
func (b Box) Center() geometry.Vec2 {
	size := b.InputSize
	if size <= 0 {
		size = 1
	}
	return geometry.Vec2{X: b.CenterX / size, Y: b.CenterY / size}
}

// Polygon is a decoded code (e.g. a QR code) outlined by its corners.
type Polygon struct {
	Points  []geometry.Vec2 // normalized image coordinates, any winding
	Payload string
}

// Kind implements Detection.
func (p Polygon) Kind() Kind { return KindPolygon }

// Key implements Detection.
func (p Polygon) Key() string { return p.Payload }

// Corners implements Detection.
func (p Polygon) Corners() []geometry.Vec2 {
	return NormalizeWinding(p.Points)
}
