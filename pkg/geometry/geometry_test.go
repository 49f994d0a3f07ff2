package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const tol = 1e-9

func assertVec(t *testing.T, want, got r3.Vec, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, 1e-6, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, 1e-6, msgAndArgs...)
}

func squareIntrinsics() Intrinsics {
	return Intrinsics{
		FocalLength:      Vec2{X: 320, Y: 320},
		PrincipalPoint:   Vec2{X: 320, Y: 320},
		SensorResolution: Resolution{Width: 640, Height: 640},
	}
}

func TestSensorCrop(t *testing.T) {
	sensor := Intrinsics{SensorResolution: Resolution{Width: 1280, Height: 960}}

	tests := []struct {
		name    string
		intr    Intrinsics
		current Resolution
		want    Rect
	}{
		{
			name:    "same resolution is full sensor",
			intr:    sensor,
			current: Resolution{Width: 1280, Height: 960},
			want:    Rect{Width: 1280, Height: 960},
		},
		{
			name:    "same aspect downscaled is full sensor",
			intr:    sensor,
			current: Resolution{Width: 640, Height: 480},
			want:    Rect{Width: 1280, Height: 960},
		},
		{
			name:    "wider image crops height with equal margins",
			intr:    sensor,
			current: Resolution{Width: 1280, Height: 720},
			want:    Rect{X: 0, Y: 120, Width: 1280, Height: 720},
		},
		{
			name:    "taller image crops width with equal margins",
			intr:    sensor,
			current: Resolution{Width: 960, Height: 960},
			want:    Rect{X: 160, Y: 0, Width: 960, Height: 960},
		},
		{
			name:    "unknown sensor uses current image",
			intr:    Intrinsics{},
			current: Resolution{Width: 800, Height: 600},
			want:    Rect{Width: 800, Height: 600},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SensorCrop(tt.intr, tt.current)
			assert.InDelta(t, tt.want.X, got.X, tol)
			assert.InDelta(t, tt.want.Y, got.Y, tol)
			assert.InDelta(t, tt.want.Width, got.Width, tol)
			assert.InDelta(t, tt.want.Height, got.Height, tol)
		})
	}
}

func TestSensorCrop_ScaleInvariant(t *testing.T) {
	intr := Intrinsics{
		FocalLength:      Vec2{X: 870, Y: 870},
		PrincipalPoint:   Vec2{X: 640, Y: 480},
		SensorResolution: Resolution{Width: 1280, Height: 960},
	}
	base := Resolution{Width: 1280, Height: 720}
	uv := Vec2{X: 0.3, Y: 0.8}
	want := ViewportToSensor(intr, base, uv)

	for _, k := range []float64{0.25, 0.5, 2} {
		scaled := Resolution{
			Width:  int(float64(base.Width) * k),
			Height: int(float64(base.Height) * k),
		}
		got := ViewportToSensor(intr, scaled, uv)
		assert.InDelta(t, want.X, got.X, 1e-6, "k=%v", k)
		assert.InDelta(t, want.Y, got.Y, 1e-6, "k=%v", k)
	}
}

func TestBuildWorldRay_CenterIsForward(t *testing.T) {
	intr := squareIntrinsics()
	res := Resolution{Width: 640, Height: 640}
	pose := Pose{Position: r3.Vec{X: 1, Y: 1.6, Z: -2}, Rotation: Identity}

	ray := BuildWorldRay(intr, res, pose, Vec2{X: 0.5, Y: 0.5})
	assertVec(t, pose.Position, ray.Origin)
	assertVec(t, r3.Vec{Z: 1}, ray.Direction)

	pose.Rotation = AxisAngle(r3.Vec{Y: 1}, math.Pi/2)
	ray = BuildWorldRay(intr, res, pose, Vec2{X: 0.5, Y: 0.5})
	assertVec(t, Forward(pose.Rotation), ray.Direction)
	assertVec(t, r3.Vec{X: 1}, ray.Direction)
}

func TestBuildWorldRay_Deterministic(t *testing.T) {
	intr := squareIntrinsics()
	res := Resolution{Width: 1280, Height: 720}
	pose := Pose{Position: r3.Vec{X: 0.2}, Rotation: AxisAngle(r3.Vec{X: 1, Y: 1}, 0.4)}
	uv := Vec2{X: 0.17, Y: 0.93}

	first := BuildWorldRay(intr, res, pose, uv)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, BuildWorldRay(intr, res, pose, uv))
	}
}

func TestBuildWorldRay_ClampsViewport(t *testing.T) {
	intr := squareIntrinsics()
	res := Resolution{Width: 640, Height: 640}

	inside := BuildWorldRay(intr, res, IdentityPose, Vec2{X: 1, Y: 0})
	outside := BuildWorldRay(intr, res, IdentityPose, Vec2{X: 7, Y: -3})
	assert.Equal(t, inside, outside)

	// Corner of the viewport: sensor (640, 0) -> local (1, -1, 1).
	want, _ := Normalize(r3.Vec{X: 1, Y: -1, Z: 1})
	assertVec(t, want, inside.Direction)
}

func TestBuildWorldRay_UnitDirection(t *testing.T) {
	intr := squareIntrinsics()
	res := Resolution{Width: 640, Height: 480}
	for _, uv := range []Vec2{{0, 0}, {1, 1}, {0.25, 0.75}} {
		ray := BuildWorldRay(intr, res, IdentityPose, uv)
		assert.InDelta(t, 1.0, r3.Norm(ray.Direction), tol)
	}
}

func TestCameraDirection_ZeroFocalLength(t *testing.T) {
	d := CameraDirection(Intrinsics{}, Vec2{X: 100, Y: 100})
	assertVec(t, r3.Vec{Z: 1}, d)
}

func TestImageToViewport(t *testing.T) {
	assert.Equal(t, Vec2{X: 0.25, Y: 0.75}, ImageToViewport(Vec2{X: 0.25, Y: 0.25}))
	assert.Equal(t, Vec2{X: 0, Y: 0}, ImageToViewport(Vec2{X: -1, Y: 2}))
}

func TestLookRotation(t *testing.T) {
	q, ok := LookRotation(r3.Vec{Z: 1}, r3.Vec{Y: 1})
	require.True(t, ok)
	assertVec(t, r3.Vec{Z: 1}, Forward(q))
	assertVec(t, r3.Vec{Y: 1}, Up(q))

	q, ok = LookRotation(r3.Vec{X: 2}, r3.Vec{Y: 1})
	require.True(t, ok)
	assertVec(t, r3.Vec{X: 1}, Forward(q))
	assertVec(t, r3.Vec{Y: 1}, Up(q))

	// Non-orthogonal up is re-orthogonalized.
	q, ok = LookRotation(r3.Vec{Z: -1}, r3.Vec{Y: 1, Z: 0.5})
	require.True(t, ok)
	assertVec(t, r3.Vec{Z: -1}, Forward(q))
	assertVec(t, r3.Vec{Y: 1}, Up(q))

	_, ok = LookRotation(r3.Vec{}, r3.Vec{Y: 1})
	assert.False(t, ok)
	_, ok = LookRotation(r3.Vec{Y: 3}, r3.Vec{Y: 1})
	assert.False(t, ok)
}

func TestPlane_Intersect(t *testing.T) {
	wall, ok := NewPlane(r3.Vec{Z: 2}, r3.Vec{Z: -5})
	require.True(t, ok)

	pt, dist, hit := wall.Intersect(Ray{Direction: r3.Vec{Z: 1}})
	require.True(t, hit)
	assert.InDelta(t, 2.0, dist, tol)
	assertVec(t, r3.Vec{Z: 2}, pt)

	_, _, hit = wall.Intersect(Ray{Direction: r3.Vec{Z: -1}})
	assert.False(t, hit, "plane behind the ray")

	_, _, hit = wall.Intersect(Ray{Direction: r3.Vec{X: 1}})
	assert.False(t, hit, "parallel ray")

	fallback := wall.Project(Ray{Direction: r3.Vec{X: 1}}, 3)
	assertVec(t, r3.Vec{X: 3}, fallback)

	_, ok = NewPlane(r3.Vec{}, r3.Vec{})
	assert.False(t, ok)
}

func TestMean(t *testing.T) {
	assert.Equal(t, r3.Vec{}, Mean(nil))
	got := Mean([]r3.Vec{{X: 1}, {X: -1}, {Y: 3}})
	assertVec(t, r3.Vec{Y: 1}, got)
}
