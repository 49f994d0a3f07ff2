// Package pipeline runs the anchoring cycle: filter detections, estimate their
// world poses, merge them into the marker table and hand the result to the
// render sink. It also hosts the two loops that feed it, one driving inference
// readback for object detection and one scanning for QR codes.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-anchors/internal/log"
	"github.com/teslashibe/go-anchors/pkg/camera"
	"github.com/teslashibe/go-anchors/pkg/detection"
	"github.com/teslashibe/go-anchors/pkg/markers"
	"github.com/teslashibe/go-anchors/pkg/pose"
	"github.com/teslashibe/go-anchors/pkg/raycast"
)

// Report summarizes one cycle.
type Report struct {
	Seq        uint64
	Detections int // received
	Filtered   int // dropped by the filter
	Degenerate int // dropped for unusable geometry
	Missed     int // dropped because the center ray hit nothing
	Result     markers.Result
	Duration   time.Duration
}

// Stats accumulates reports.
type Stats struct {
	Cycles     int `json:"cycles"`
	Detections int `json:"detections"`
	Filtered   int `json:"filtered"`
	Degenerate int `json:"degenerate"`
	Missed     int `json:"missed"`
	Created    int `json:"created"`
	Retired    int `json:"retired"`
	Markers    int `json:"markers"`
}

// Pipeline owns one marker table and the cycle that updates it. Use one
// Pipeline per detection source.
type Pipeline struct {
	config    Config
	camera    camera.Access
	raycaster raycast.Raycaster
	sink      Sink
	estimator *pose.Estimator
	tracker   *markers.Tracker
	logger    *slog.Logger

	stats Stats
	mu    sync.Mutex
}

// New validates collaborators and config and creates a pipeline.
func New(cfg Config, cam camera.Access, rc raycast.Raycaster, sink Sink) (*Pipeline, error) {
	switch {
	case cam == nil:
		return nil, missing("camera")
	case rc == nil:
		return nil, missing("raycaster")
	case sink == nil:
		return nil, missing("sink")
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, errs)
	}

	return &Pipeline{
		config:    cfg,
		camera:    cam,
		raycaster: rc,
		sink:      sink,
		estimator: pose.New(cfg.Pose),
		tracker:   markers.New(cfg.Markers),
		logger:    log.Component("pipeline"),
	}, nil
}

// SetLogger replaces the pipeline's logger.
func (p *Pipeline) SetLogger(l *slog.Logger) {
	if l != nil {
		p.logger = l
		p.tracker.SetLogger(l)
	}
}

// Capture takes a frame snapshot for a cycle.
func (p *Pipeline) Capture() (camera.Frame, error) {
	frame, ok := camera.Capture(p.camera)
	if !ok {
		return camera.Frame{}, ErrCameraNotPlaying
	}
	return frame, nil
}

// Process runs one full cycle over the detections found in frame. The sink sees
// the table only after the whole cycle has been applied.
func (p *Pipeline) Process(frame camera.Frame, dets []detection.Detection) Report {
	start := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	rep := Report{Seq: frame.Seq, Detections: len(dets)}
	obs := make([]markers.Observation, 0, len(dets))

	for i, det := range dets {
		if !p.config.Filter.Allow(det) {
			rep.Filtered++
			continue
		}

		mp, err := p.estimator.Estimate(det, frame, p.raycaster)
		switch {
		case errors.Is(err, pose.ErrRaycastMiss):
			rep.Missed++
			p.logger.Debug("detection skipped", "index", i, "key", det.Key(), "error", err)
			continue
		case err != nil:
			rep.Degenerate++
			p.logger.Debug("detection skipped", "index", i, "key", det.Key(), "error", err)
			continue
		}
		obs = append(obs, markers.Observation{Key: det.Key(), Pose: mp})
	}

	rep.Result = p.tracker.Update(obs)
	p.sink.Render(p.tracker.Snapshot())
	p.sink.Retire(rep.Result.Retired)

	rep.Duration = time.Since(start)
	p.record(rep)
	return rep
}

func (p *Pipeline) record(rep Report) {
	p.stats.Cycles++
	p.stats.Detections += rep.Detections
	p.stats.Filtered += rep.Filtered
	p.stats.Degenerate += rep.Degenerate
	p.stats.Missed += rep.Missed
	p.stats.Created += len(rep.Result.Created)
	p.stats.Retired += len(rep.Result.Retired)
	p.stats.Markers = p.tracker.Len()
}

// Deactivate marks a marker hidden by the renderer; the next cycle retires it.
func (p *Pipeline) Deactivate(key string) bool {
	return p.tracker.Deactivate(key)
}

// Markers returns copies of the current markers.
func (p *Pipeline) Markers() []markers.Snapshot {
	return p.tracker.Snapshot()
}

// Stats returns cumulative cycle counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Config returns the pipeline config.
func (p *Pipeline) Config() Config {
	return p.config
}

// Reset retires every marker and tells the sink.
func (p *Pipeline) Reset() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := p.tracker.Clear()
	p.sink.Render(nil)
	p.sink.Retire(keys)
	p.stats.Retired += len(keys)
	p.stats.Markers = 0
	return keys
}
