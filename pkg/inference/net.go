package inference

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// NetEngine runs an ONNX model with OpenCV DNN. OpenCV executes the network in
// one call, so its Schedule completes on the first Step and readback is
// immediately done.
type NetEngine struct {
	net     gocv.Net
	config  *Config
	logger  *slog.Logger
	size    image.Point
	outputs []gocv.Mat
	closed  bool
	mu      sync.Mutex
}

// NewNetEngine loads a model.
func NewNetEngine(opts ...Option) (*NetEngine, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, &ModelError{Path: cfg.ModelPath, Err: ErrModelNotFound}
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, &ModelError{Path: cfg.ModelPath, Err: ErrModelLoad}
	}

	net.SetPreferableBackend(gocv.ParseNetBackend(cfg.Backend))
	net.SetPreferableTarget(gocv.ParseNetTarget(cfg.Target))

	if cfg.AllOutputs && len(cfg.OutputNames) == 0 {
		cfg.OutputNames = outputLayerNames(net.GetUnconnectedOutLayers(), net.GetLayerNames())
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("model loaded", "path", cfg.ModelPath, "input", cfg.InputSize, "outputs", cfg.OutputNames, "backend", cfg.Backend, "target", cfg.Target)

	return &NetEngine{
		net:    net,
		config: cfg,
		logger: logger,
		size:   image.Pt(cfg.InputSize, cfg.InputSize),
	}, nil
}

// outputLayerNames maps OpenCV's 1-based layer ids to names, skipping ids
// outside names.
func outputLayerNames(ids []int, names []string) []string {
	var out []string
	for _, id := range ids {
		if id < 1 || id > len(names) {
			continue
		}
		out = append(out, names[id-1])
	}
	return out
}

// Input decodes a JPEG and converts it to a normalized NCHW blob.
func (e *NetEngine) Input(jpeg []byte) (Tensor, error) {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, e.size, gocv.NewScalar(0, 0, 0, 0), true, false)
	return &matTensor{mat: blob, owner: e}, nil
}

// Schedule implements Engine.
func (e *NetEngine) Schedule(input Tensor) (Schedule, error) {
	t, ok := input.(*matTensor)
	if !ok || t.owner != e {
		return nil, ErrForeignTensor
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if t.disposed {
		return nil, ErrDisposed
	}

	e.releaseOutputs()
	e.net.SetInput(t.mat, "")
	return &netSchedule{engine: e}, nil
}

type netSchedule struct {
	engine *NetEngine
	done   bool
}

// Step runs the whole forward pass.
func (s *netSchedule) Step() bool {
	if s.done {
		return false
	}
	s.done = true
	s.engine.forward()
	return false
}

func (e *NetEngine) forward() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if len(e.config.OutputNames) == 0 {
		e.outputs = []gocv.Mat{e.net.Forward("")}
		return
	}
	e.outputs = e.net.ForwardLayers(e.config.OutputNames)
}

// PeekOutput implements Engine.
func (e *NetEngine) PeekOutput(i int) DeviceTensor {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.outputs) {
		return nil
	}
	return &matOutput{engine: e, index: i}
}

// Outputs implements Engine.
func (e *NetEngine) Outputs() int {
	if n := len(e.config.OutputNames); n > 0 {
		return n
	}
	return 1
}

// Close releases the network and any pending outputs.
func (e *NetEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.releaseOutputs()
	return e.net.Close()
}

func (e *NetEngine) releaseOutputs() {
	for _, m := range e.outputs {
		m.Close()
	}
	e.outputs = nil
}

// matTensor is an input blob owned by the caller.
type matTensor struct {
	mat      gocv.Mat
	owner    *NetEngine
	disposed bool
}

func (t *matTensor) Shape() []int {
	if t.disposed {
		return nil
	}
	return t.mat.Size()
}

func (t *matTensor) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	t.mat.Close()
}

// matOutput is a view onto an engine-owned output. It never frees the Mat;
// the engine does that on the next Schedule or on Close.
type matOutput struct {
	engine    *NetEngine
	index     int
	requested bool
}

func (o *matOutput) mat() (gocv.Mat, bool) {
	o.engine.mu.Lock()
	defer o.engine.mu.Unlock()

	if o.index >= len(o.engine.outputs) {
		return gocv.Mat{}, false
	}
	m := o.engine.outputs[o.index]
	return m, !m.Empty()
}

func (o *matOutput) Shape() []int {
	if m, ok := o.mat(); ok {
		return m.Size()
	}
	return nil
}

func (o *matOutput) Dispose() {}

func (o *matOutput) OnBackend() bool {
	_, ok := o.mat()
	return ok
}

func (o *matOutput) RequestReadback() { o.requested = true }

func (o *matOutput) ReadbackDone() bool { return o.requested }

func (o *matOutput) ReadbackAndClone() (HostTensor, error) {
	o.engine.mu.Lock()
	defer o.engine.mu.Unlock()

	if o.index >= len(o.engine.outputs) || o.engine.outputs[o.index].Empty() {
		return nil, ErrDisposed
	}
	m := o.engine.outputs[o.index]
	data, err := m.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output %d: %w", o.index, err)
	}
	clone := make([]float32, len(data))
	copy(clone, data)
	return NewBuffer(m.Size(), clone), nil
}

var _ Engine = (*NetEngine)(nil)
