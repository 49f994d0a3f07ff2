package anchors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/teslashibe/go-anchors/internal/log"
	"github.com/teslashibe/go-anchors/pkg/camera"
	"github.com/teslashibe/go-anchors/pkg/detection"
	"github.com/teslashibe/go-anchors/pkg/inference"
	"github.com/teslashibe/go-anchors/pkg/pipeline"
	"github.com/teslashibe/go-anchors/pkg/pose"
	"github.com/teslashibe/go-anchors/pkg/raycast"
	"github.com/teslashibe/go-anchors/pkg/readback"
	"github.com/teslashibe/go-anchors/pkg/web"
)

// ErrNotInitialized is returned by Run before Init.
var ErrNotInitialized = errors.New("anchors: app not initialized")

// App is the anchors application.
type App struct {
	config Config
	logger *slog.Logger

	camera   *camera.Static
	scene    *raycast.Scene
	pipeline *pipeline.Pipeline
	server   *web.Server

	detector *pipeline.ObjectDetector
	scanner  *pipeline.QRScanner

	closers []io.Closer

	// Factories, replaceable in tests.
	newEngine    func(Config) (inference.Engine, error)
	newQRDecoder func(Config) (pipeline.PolygonDecoder, error)
	loadFrames   func(camera.Config, ...string) (*camera.Static, error)
}

// New creates a new application with the given configuration.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &App{
		config:       cfg,
		logger:       log.Component("anchors"),
		newEngine:    netEngine,
		newQRDecoder: qrDecoder,
		loadFrames:   camera.LoadStatic,
	}, nil
}

// Config returns the application config.
func (a *App) Config() Config { return a.config }

// Pipeline returns the marker pipeline once initialized.
func (a *App) Pipeline() *pipeline.Pipeline { return a.pipeline }

// Camera returns the frame source once initialized.
func (a *App) Camera() *camera.Static { return a.camera }

// Scene returns the raycast environment once initialized.
func (a *App) Scene() *raycast.Scene { return a.scene }

// Server returns the dashboard, or nil when disabled.
func (a *App) Server() *web.Server { return a.server }

// Init builds every component.
// Call this after New() and before Run().
func (a *App) Init() error {
	a.logger.Info("initializing", "mode", a.config.Mode, "images", len(a.config.Images))

	preset := camera.GetPreset(a.config.Preset)
	cam, err := a.loadFrames(*preset, a.config.Images...)
	if err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	a.camera = cam
	a.scene = raycast.Room(a.config.RoomDepth)

	sinks := pipeline.MultiSink{pipeline.LogSink{Logger: log.Component("markers")}}
	if a.config.DashboardPort != "" {
		a.server = web.NewServer(a.config.DashboardPort, nil)
		sinks = append(sinks, a.server)
	}

	p, err := pipeline.New(a.pipelineConfig(), a.camera, a.scene, sinks)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	a.pipeline = p
	if a.server != nil {
		a.server.SetSource(p)
	}

	switch a.config.Mode {
	case ModeObjects:
		err = a.initObjects()
	case ModeQR:
		err = a.initQR()
	}
	return err
}

func (a *App) pipelineConfig() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if a.config.Mode == ModeQR {
		cfg = pipeline.QRConfig()
	} else {
		cfg.Filter.Labels = a.config.Labels
		cfg.Filter.MinConfidence = a.config.MinConfidence
		cfg.Pose.MinConfidence = a.config.MinConfidence
	}
	cfg.Pose.BoxMode = pose.ParseRaycastMode(a.config.BoxMode)
	if a.config.DetectInterval > 0 {
		cfg.DetectInterval = a.config.DetectInterval
	}
	return cfg
}

func (a *App) initObjects() error {
	engine, err := a.newEngine(a.config)
	if err != nil {
		return fmt.Errorf("inference: %w", err)
	}
	a.closers = append(a.closers, engine)

	decode := pipeline.YOLOv8Decoder(detection.YOLOConfig{
		ConfidenceThresh: float32(a.config.MinConfidence),
		NMSThresh:        detection.DefaultYOLOConfig().NMSThresh,
		InputSize:        detection.DefaultInputSize,
		Classes:          detection.COCOClasses,
	})
	if a.config.Decoder == DecoderTwoOutput {
		decode = pipeline.TwoOutputDecoder(detection.DefaultInputSize, detection.COCOClasses)
	}

	d, err := pipeline.NewObjectDetector(a.pipeline, engine, decode,
		readback.WithLayersPerTick(a.config.LayersPerTick))
	if err != nil {
		return err
	}
	d.OnReport = a.logReport
	a.detector = d
	return nil
}

func (a *App) initQR() error {
	dec, err := a.newQRDecoder(a.config)
	if err != nil {
		return fmt.Errorf("qr: %w", err)
	}
	if c, ok := dec.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	s, err := pipeline.NewQRScanner(a.pipeline, dec)
	if err != nil {
		return err
	}
	s.OnReport = a.logReport
	a.scanner = s
	return nil
}

func (a *App) logReport(rep pipeline.Report) {
	a.logger.Debug("cycle",
		"seq", rep.Seq,
		"detections", rep.Detections,
		"created", len(rep.Result.Created),
		"updated", len(rep.Result.Updated),
		"retired", len(rep.Result.Retired),
		"duration", rep.Duration)
}

// Run starts the dashboard and the detector loop.
// Blocks until context is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return ErrNotInitialized
	}
	if a.server != nil {
		a.server.StartAsync(ctx)
	}

	a.logger.Info("anchoring", "mode", a.config.Mode)
	switch {
	case a.detector != nil:
		a.detector.Run(ctx)
	case a.scanner != nil:
		a.scanner.Run(ctx)
	}

	a.logger.Info("stopped", "stats", a.pipeline.Stats())
	return nil
}

// Shutdown releases the engine, the decoder and the dashboard.
func (a *App) Shutdown() {
	if a.detector != nil {
		a.detector.Close()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
	if a.server != nil {
		a.server.Shutdown()
	}
}

func netEngine(cfg Config) (inference.Engine, error) {
	return inference.NewNetEngine(engineOptions(cfg)...)
}

// engineOptions selects the outputs the decoder reads. A two-output model
// without explicit names reads every unconnected output, coords then labels.
func engineOptions(cfg Config) []inference.Option {
	opts := []inference.Option{
		inference.WithModelPath(cfg.ModelPath),
		inference.WithBackend(cfg.Backend),
		inference.WithTarget(cfg.Target),
		inference.WithLogger(log.Component("inference")),
	}
	switch {
	case len(cfg.OutputNames) > 0:
		opts = append(opts, inference.WithOutputNames(cfg.OutputNames...))
	case cfg.Decoder == DecoderTwoOutput:
		opts = append(opts, inference.WithAllOutputs())
	}
	return opts
}

func qrDecoder(cfg Config) (pipeline.PolygonDecoder, error) {
	return detection.NewQRDecoder(detection.QRConfig{
		SampleFactor: cfg.SampleFactor,
		Multiple:     cfg.QRMultiple,
	}), nil
}
