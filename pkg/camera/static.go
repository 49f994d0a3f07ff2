package camera

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// Static is an Access backed by still images. Each Frame call returns the next
// image in turn. The pose can be moved at runtime to simulate head motion.
type Static struct {
	config  Config
	images  [][]byte
	pose    geometry.Pose
	playing bool
	next    int
	seq     uint64
	mu      sync.RWMutex

	// Callback when config changes
	OnConfigChange func(cfg Config) error
}

// NewStatic creates a playing camera serving the given JPEG images.
func NewStatic(cfg Config, images ...[]byte) (*Static, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera config: %v", errs)
	}
	return &Static{
		config:  cfg,
		images:  images,
		pose:    geometry.IdentityPose,
		playing: len(images) > 0,
	}, nil
}

// LoadStatic reads JPEG files from disk and serves them.
func LoadStatic(cfg Config, paths ...string) (*Static, error) {
	images := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", p, err)
		}
		images = append(images, data)
	}
	return NewStatic(cfg, images...)
}

// IsPlaying implements Access.
func (s *Static) IsPlaying() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// SetPlaying starts or pauses the stream.
func (s *Static) SetPlaying(playing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = playing && len(s.images) > 0
}

// CurrentResolution implements Access.
func (s *Static) CurrentResolution() geometry.Resolution {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Resolution()
}

// Intrinsics implements Access.
func (s *Static) Intrinsics() geometry.Intrinsics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Intrinsics()
}

// Pose implements Access.
func (s *Static) Pose() geometry.Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pose
}

// SetPose moves the camera.
func (s *Static) SetPose(p geometry.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pose = p
}

// Config returns the current camera configuration.
func (s *Static) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// SetConfig updates the camera configuration.
func (s *Static) SetConfig(cfg Config) error {
	if errs := cfg.Validate(); len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}

	s.mu.Lock()
	s.config = cfg
	callback := s.OnConfigChange
	s.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}
	return nil
}

// Frame implements Access.
func (s *Static) Frame() (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing || len(s.images) == 0 {
		return Frame{}, false
	}

	img := s.images[s.next%len(s.images)]
	s.next++
	s.seq++

	return Frame{
		Seq:        s.seq,
		Image:      img,
		Pose:       s.pose,
		Intrinsics: s.config.Intrinsics(),
		Resolution: s.config.Resolution(),
		CapturedAt: time.Now(),
	}, true
}
