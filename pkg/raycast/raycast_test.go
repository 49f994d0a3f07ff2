package raycast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

func TestRoom_WallHit(t *testing.T) {
	scene := Room(2)
	ray := geometry.Ray{Origin: r3.Vec{Y: 1.5}, Direction: r3.Vec{Z: 1}}

	hit, ok := scene.Raycast(ray, geometry.Unbounded)
	require.True(t, ok)
	assert.InDelta(t, 2.0, hit.Distance, 1e-9)
	assert.InDelta(t, 2.0, hit.Point.Z, 1e-9)
	assert.Equal(t, r3.Vec{Z: -1}, hit.Normal)
}

func TestRoom_NearestWins(t *testing.T) {
	scene := Room(10)
	// Looking down and forward: floor at distance ~2.12, wall at ~14.1.
	dir, _ := geometry.Normalize(r3.Vec{Y: -1, Z: 1})
	hit, ok := scene.Raycast(geometry.Ray{Origin: r3.Vec{Y: 1.5}, Direction: dir}, geometry.Unbounded)
	require.True(t, ok)
	assert.InDelta(t, 0.0, hit.Point.Y, 1e-9)
	assert.InDelta(t, 1.5, hit.Point.Z, 1e-9)
	assert.Equal(t, r3.Vec{Y: 1}, hit.Normal)
}

func TestScene_MaxDistance(t *testing.T) {
	scene := Room(5)
	ray := geometry.Ray{Origin: r3.Vec{Y: 1}, Direction: r3.Vec{Z: 1}}

	_, ok := scene.Raycast(ray, 4)
	assert.False(t, ok)
	_, ok = scene.Raycast(ray, 5.5)
	assert.True(t, ok)
}

func TestScene_Miss(t *testing.T) {
	scene := Room(5)
	_, ok := scene.Raycast(geometry.Ray{Origin: r3.Vec{Y: 1}, Direction: r3.Vec{Y: 1}}, geometry.Unbounded)
	assert.False(t, ok, "looking at the sky")
}

func TestSurface_Bounds(t *testing.T) {
	table := Surface{
		Name:       "table",
		Center:     r3.Vec{Y: 0.7, Z: 1},
		Normal:     r3.Vec{Y: 1},
		Up:         r3.Vec{Z: 1},
		HalfWidth:  0.5,
		HalfHeight: 0.3,
	}
	scene := NewScene(table)
	down := r3.Vec{Y: -1}

	_, ok := scene.Raycast(geometry.Ray{Origin: r3.Vec{X: 0.4, Y: 2, Z: 1.2}, Direction: down}, geometry.Unbounded)
	assert.True(t, ok)
	_, ok = scene.Raycast(geometry.Ray{Origin: r3.Vec{X: 0.6, Y: 2, Z: 1}, Direction: down}, geometry.Unbounded)
	assert.False(t, ok, "outside width")
	_, ok = scene.Raycast(geometry.Ray{Origin: r3.Vec{Y: 2, Z: 1.4}, Direction: down}, geometry.Unbounded)
	assert.False(t, ok, "outside height")

	scene.Add(Surface{Name: "floor", Normal: r3.Vec{Y: 1}})
	hit, ok := scene.Raycast(geometry.Ray{Origin: r3.Vec{X: 0.6, Y: 2, Z: 1}, Direction: down}, geometry.Unbounded)
	require.True(t, ok)
	assert.InDelta(t, 0.0, hit.Point.Y, 1e-9)
	assert.Len(t, scene.Surfaces(), 2)
}

func TestSurface_NormalFacesRay(t *testing.T) {
	scene := NewScene(Surface{Center: r3.Vec{Z: 3}, Normal: r3.Vec{Z: 1}})
	hit, ok := scene.Raycast(geometry.Ray{Direction: r3.Vec{Z: 1}}, geometry.Unbounded)
	require.True(t, ok)
	assert.Equal(t, r3.Vec{Z: -1}, hit.Normal)
}

func TestMock(t *testing.T) {
	m := &Mock{}
	_, ok := m.Raycast(geometry.Ray{}, 1)
	assert.False(t, ok)

	m.RaycastFunc = func(ray geometry.Ray, _ float64) (Hit, bool) {
		return Hit{Point: ray.At(2), Distance: 2}, true
	}
	hit, ok := m.Raycast(geometry.Ray{Direction: r3.Vec{X: 1}}, geometry.Unbounded)
	require.True(t, ok)
	assert.Equal(t, r3.Vec{X: 2}, hit.Point)
	assert.Equal(t, 2, m.CallCount())

	m.Reset()
	assert.Empty(t, m.Calls())
}

func TestFunc(t *testing.T) {
	var rc Raycaster = Func(func(geometry.Ray, float64) (Hit, bool) { return Hit{Distance: 1}, true })
	hit, ok := rc.Raycast(geometry.Ray{}, 0)
	assert.True(t, ok)
	assert.Equal(t, 1.0, hit.Distance)
}
