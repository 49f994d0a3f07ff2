package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-anchors/pkg/camera"
	"github.com/teslashibe/go-anchors/pkg/detection"
	"github.com/teslashibe/go-anchors/pkg/inference"
	"github.com/teslashibe/go-anchors/pkg/readback"
)

// BoxDecoder turns host copies of the model outputs into boxes.
type BoxDecoder func(outputs []inference.HostTensor) ([]detection.Box, error)

// YOLOv8Decoder decodes a single raw [1, 4+classes, candidates] output.
func YOLOv8Decoder(cfg detection.YOLOConfig) BoxDecoder {
	return func(outputs []inference.HostTensor) ([]detection.Box, error) {
		if len(outputs) < 1 {
			return nil, fmt.Errorf("%w: no outputs", detection.ErrShapeMismatch)
		}
		shape := outputs[0].Shape()
		if len(shape) != 3 {
			return nil, fmt.Errorf("%w: want 3 dims, got %v", detection.ErrShapeMismatch, shape)
		}
		return detection.ParseYOLOv8(outputs[0].Float32s(), shape[2], shape[1], cfg), nil
	}
}

// TwoOutputDecoder decodes a coords [N,4] plus class ids [N] model.
func TwoOutputDecoder(inputSize float64, classes []string) BoxDecoder {
	return func(outputs []inference.HostTensor) ([]detection.Box, error) {
		if len(outputs) < 2 {
			return nil, fmt.Errorf("%w: want 2 outputs, got %d", detection.ErrShapeMismatch, len(outputs))
		}
		return detection.DecodeBoxes(outputs[0].Float32s(), outputs[1].Float32s(), inputSize, classes)
	}
}

// ObjectDetector feeds a pipeline from an inference engine. Each cycle captures
// a frame, schedules the model on it and, once the readback machine has
// delivered the outputs, runs the pipeline against that same frame.
type ObjectDetector struct {
	pipeline *Pipeline
	engine   inference.Engine
	machine  *readback.Machine
	decode   BoxDecoder
	logger   *slog.Logger

	// OnReport is called after each completed cycle.
	OnReport func(Report)

	mu         sync.Mutex
	lastReport Report
	lastErr    error
}

// NewObjectDetector wires an engine into p.
func NewObjectDetector(p *Pipeline, engine inference.Engine, decode BoxDecoder, opts ...readback.Option) (*ObjectDetector, error) {
	switch {
	case p == nil:
		return nil, missing("pipeline")
	case engine == nil:
		return nil, missing("engine")
	case decode == nil:
		return nil, missing("decoder")
	}

	logger := p.logger.With("loop", "objects")
	opts = append([]readback.Option{readback.WithLogger(logger)}, opts...)
	machine, err := readback.New(engine, opts...)
	if err != nil {
		return nil, err
	}

	return &ObjectDetector{
		pipeline: p,
		engine:   engine,
		machine:  machine,
		decode:   decode,
		logger:   logger,
	}, nil
}

// Start begins a cycle on the current frame. It returns
// readback.ErrAdmissionRejected while the previous cycle is still in flight and
// ErrCameraNotPlaying when there is no frame.
func (d *ObjectDetector) Start() error {
	if d.machine.Busy() {
		return readback.ErrAdmissionRejected
	}

	frame, err := d.pipeline.Capture()
	if err != nil {
		return err
	}

	input, err := d.engine.Input(frame.Image)
	if err != nil {
		return fmt.Errorf("prepare input: %w", err)
	}

	if err := d.machine.Begin(input, d.deliverer(frame)); err != nil {
		if errors.Is(err, readback.ErrAdmissionRejected) || errors.Is(err, readback.ErrClosed) {
			input.Dispose()
		}
		return err
	}
	return nil
}

func (d *ObjectDetector) deliverer(frame camera.Frame) readback.Deliver {
	return func(outputs []inference.HostTensor) {
		boxes, err := d.decode(outputs)
		if err != nil {
			d.logger.Warn("decode failed", "seq", frame.Seq, "error", err)
			d.setLast(Report{Seq: frame.Seq}, err)
			return
		}

		dets := make([]detection.Detection, len(boxes))
		for i, b := range boxes {
			dets[i] = b
		}

		rep := d.pipeline.Process(frame, dets)
		d.setLast(rep, nil)
		if d.OnReport != nil {
			d.OnReport(rep)
		}
	}
}

func (d *ObjectDetector) setLast(rep Report, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastReport = rep
	d.lastErr = err
}

// Last returns the most recent report and decode error.
func (d *ObjectDetector) Last() (Report, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastReport, d.lastErr
}

// Tick advances the readback machine by one step.
func (d *ObjectDetector) Tick() (readback.State, error) {
	return d.machine.Tick()
}

// Machine exposes the readback machine for inspection.
func (d *ObjectDetector) Machine() *readback.Machine {
	return d.machine
}

// Run drives the detector until ctx is cancelled, then releases any in-flight
// cycle.
func (d *ObjectDetector) Run(ctx context.Context) {
	cfg := d.pipeline.Config()
	tickTicker := time.NewTicker(cfg.TickInterval)
	detectTicker := time.NewTicker(cfg.DetectInterval)
	defer tickTicker.Stop()
	defer detectTicker.Stop()

	d.logger.Info("object detector started",
		"tick", cfg.TickInterval,
		"detect", cfg.DetectInterval)

	for {
		select {
		case <-ctx.Done():
			d.Close()
			d.logger.Info("object detector stopped", "stats", d.machine.Stats())
			return

		case <-tickTicker.C:
			// Aborts are logged by the machine; the next cycle starts fresh.
			d.machine.Tick()

		case <-detectTicker.C:
			err := d.Start()
			switch {
			case err == nil,
				errors.Is(err, readback.ErrAdmissionRejected),
				errors.Is(err, ErrCameraNotPlaying):
			default:
				d.logger.Warn("cycle not started", "error", err)
			}
		}
	}
}

// Close cancels any in-flight cycle.
func (d *ObjectDetector) Close() error {
	return d.machine.Close()
}
