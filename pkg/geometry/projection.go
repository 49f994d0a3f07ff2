package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// SensorCrop returns the region of the native sensor that an image of the current
// resolution was taken from.
//
// The crop keeps the current aspect ratio: the axis with the larger scale factor
// spans the full sensor and the other axis is centered with equal margins. When the
// sensor resolution is unknown the crop is the whole current image.
func SensorCrop(intr Intrinsics, current Resolution) Rect {
	sensor := intr.SensorResolution
	if sensor.IsZero() {
		return Rect{Width: float64(current.Width), Height: float64(current.Height)}
	}
	sw, sh := float64(sensor.Width), float64(sensor.Height)
	if current.IsZero() || current == sensor {
		return Rect{Width: sw, Height: sh}
	}

	sx := float64(current.Width) / sw
	sy := float64(current.Height) / sh
	m := max(sx, sy)
	sx /= m
	sy /= m

	return Rect{
		X:      sw * (1 - sx) * 0.5,
		Y:      sh * (1 - sy) * 0.5,
		Width:  sw * sx,
		Height: sh * sy,
	}
}

// ViewportToSensor maps a viewport coordinate into sensor pixels through the crop.
// uv is clamped to [0,1].
func ViewportToSensor(intr Intrinsics, current Resolution, uv Vec2) Vec2 {
	crop := SensorCrop(intr, current)
	return Vec2{
		X: crop.X + clamp01(uv.X)*crop.Width,
		Y: crop.Y + clamp01(uv.Y)*crop.Height,
	}
}

// CameraDirection is the inverse pinhole projection of a sensor pixel into a unit
// direction in camera space. A zero focal length collapses that axis onto the
// optical axis instead of producing NaNs.
func CameraDirection(intr Intrinsics, sensor Vec2) r3.Vec {
	d := r3.Vec{Z: 1}
	if intr.FocalLength.X != 0 {
		d.X = (sensor.X - intr.PrincipalPoint.X) / intr.FocalLength.X
	}
	if intr.FocalLength.Y != 0 {
		d.Y = (sensor.Y - intr.PrincipalPoint.Y) / intr.FocalLength.Y
	}
	u, _ := Normalize(d)
	return u
}

// BuildWorldRay turns a viewport coordinate into a world-space ray from the
// camera. It is the only sensor-to-world projection in the module; box corners,
// polygon corners and centers all go through here.
func BuildWorldRay(intr Intrinsics, current Resolution, pose Pose, uv Vec2) Ray {
	local := CameraDirection(intr, ViewportToSensor(intr, current, uv))
	dir, ok := Normalize(Rotate(pose.Rotation, local))
	if !ok {
		dir = r3.Vec{Z: 1}
	}
	return Ray{Origin: pose.Position, Direction: dir}
}

// ImageToViewport converts an image coordinate (origin top-left, y down) into a
// viewport coordinate (origin bottom-left, y up). Both axes are clamped.
func ImageToViewport(p Vec2) Vec2 {
	return Vec2{X: clamp01(p.X), Y: 1 - clamp01(p.Y)}
}
