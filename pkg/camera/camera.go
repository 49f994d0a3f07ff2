package camera

import (
	"time"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// Access is the camera collaborator.
type Access interface {
	// IsPlaying reports whether the stream is delivering frames.
	IsPlaying() bool

	// CurrentResolution is the size of the delivered images.
	CurrentResolution() geometry.Resolution

	// Intrinsics is the calibration of the physical sensor.
	Intrinsics() geometry.Intrinsics

	// Pose is the camera's world pose right now.
	Pose() geometry.Pose

	// Frame returns the latest frame, or false when none is available yet.
	Frame() (Frame, bool)
}

// Frame is the value snapshot a detection cycle works from. Pose, intrinsics and
// resolution are captured together with the image so that rays built later in
// the cycle match the pixels the detector saw.
type Frame struct {
	Seq        uint64
	Image      []byte // JPEG
	Pose       geometry.Pose
	Intrinsics geometry.Intrinsics
	Resolution geometry.Resolution
	CapturedAt time.Time
}

// Ray builds the world ray for a viewport coordinate of this frame.
func (f Frame) Ray(uv geometry.Vec2) geometry.Ray {
	return geometry.BuildWorldRay(f.Intrinsics, f.Resolution, f.Pose, uv)
}

// Capture takes a frame snapshot from a playing camera.
// It returns false when the camera is not playing or has no frame yet.
func Capture(a Access) (Frame, bool) {
	if a == nil || !a.IsPlaying() {
		return Frame{}, false
	}
	return a.Frame()
}
