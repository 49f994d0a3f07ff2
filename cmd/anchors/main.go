// anchors detects objects or QR codes in camera frames and anchors a marker to
// each one in world space, serving the live marker table on a dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/teslashibe/go-anchors/internal/log"
	"github.com/teslashibe/go-anchors/pkg/anchors"
	"github.com/teslashibe/go-anchors/pkg/camera"
)

func main() {
	cfg := parseFlags()
	cfg.LoadEnvConfig()
	log.Init(cfg.LogLevel)

	app, err := anchors.New(cfg)
	if err != nil {
		fatal("configuration error", err)
	}

	if err := app.Init(); err != nil {
		fatal("initialization failed", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		fatal("runtime error", err)
	}
}

// parseFlags parses command line flags and returns configuration. Positional
// arguments are the frames to cycle through.
func parseFlags() anchors.Config {
	cfg := anchors.DefaultConfig()

	mode := flag.String("mode", cfg.Mode, "Detection mode: objects, qr")
	preset := flag.String("preset", cfg.Preset, "Camera preset: "+presetNames())
	model := flag.String("model", cfg.ModelPath, "ONNX model path (overrides ANCHORS_MODEL_PATH)")
	decoder := flag.String("decoder", cfg.Decoder, "Model output layout: yolov8, two-output")
	outputs := flag.String("outputs", "", "Comma separated output layer names (two-output: coords,labels)")
	backend := flag.String("backend", cfg.Backend, "DNN backend: default, opencv, cuda, openvino")
	target := flag.String("target", cfg.Target, "DNN target: cpu, cuda, cuda-fp16, opencl")
	layers := flag.Int("layers-per-tick", cfg.LayersPerTick, "Scheduled layers per readback tick")
	labels := flag.String("labels", "", "Comma separated label allow-list (empty accepts all)")
	minConf := flag.Float64("min-confidence", cfg.MinConfidence, "Minimum detection confidence")
	sample := flag.Int("qr-sample", cfg.SampleFactor, "QR downsample factor")
	multi := flag.Bool("qr-multi", cfg.QRMultiple, "Decode every QR code in a frame")
	boxMode := flag.String("box-raycast", cfg.BoxMode, "Box raycast mode: center-only, per-corner")
	depth := flag.Float64("room-depth", cfg.RoomDepth, "Distance to the simulated wall in meters")
	interval := flag.Duration("interval", 0, "Detection interval (0 uses the mode default)")
	port := flag.String("port", cfg.DashboardPort, "Dashboard port (empty disables)")
	level := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	debug := flag.Bool("debug", false, "Shorthand for -log-level debug")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: anchors [flags] frame.jpg [frame.jpg ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg.Mode, cfg.Preset, cfg.ModelPath, cfg.Decoder = *mode, *preset, *model, *decoder
	cfg.Backend, cfg.Target, cfg.LayersPerTick = *backend, *target, *layers
	cfg.OutputNames = anchors.SplitList(*outputs)
	cfg.Labels = anchors.SplitList(*labels)
	cfg.MinConfidence, cfg.SampleFactor, cfg.QRMultiple = *minConf, *sample, *multi
	cfg.BoxMode, cfg.RoomDepth, cfg.DetectInterval = *boxMode, *depth, *interval
	cfg.DashboardPort, cfg.LogLevel = *port, *level
	if *debug {
		cfg.LogLevel = "debug"
	}
	cfg.Images = flag.Args()
	return cfg
}

func presetNames() string {
	var names []string
	for name := range camera.Presets() {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprint(names)
}

func fatal(msg string, err error) {
	log.Error(msg, "error", err)
	os.Exit(1)
}
