package detection

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-anchors/pkg/geometry"
)

// ErrEmptyImage is returned when a frame decodes to nothing.
var ErrEmptyImage = errors.New("detection: empty image")

// QRConfig holds QR decoding parameters.
type QRConfig struct {
	// SampleFactor downsamples the frame before decoding. 1 disables it.
	SampleFactor int

	// Multiple decodes every code in the frame instead of the first found.
	Multiple bool
}

// DefaultQRConfig returns the default decoder settings.
func DefaultQRConfig() QRConfig {
	return QRConfig{SampleFactor: 2}
}

// QRDecoder finds and decodes QR codes using OpenCV.
type QRDecoder struct {
	detector gocv.QRCodeDetector
	config   QRConfig
	mu       sync.Mutex
}

// NewQRDecoder creates a decoder.
func NewQRDecoder(cfg QRConfig) *QRDecoder {
	if cfg.SampleFactor < 1 {
		cfg.SampleFactor = 1
	}
	return &QRDecoder{
		detector: gocv.NewQRCodeDetector(),
		config:   cfg,
	}
}

// Decode finds QR codes in the JPEG image, one polygon per decoded code. It
// returns no polygons when nothing decodes.
func (d *QRDecoder) Decode(jpeg []byte) ([]Polygon, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	src := img
	if f := d.config.SampleFactor; f > 1 {
		small := gocv.NewMat()
		defer small.Close()
		gocv.Resize(img, &small, image.Point{}, 1/float64(f), 1/float64(f), gocv.InterpolationArea)
		src = small
	}

	w := float64(src.Cols())
	h := float64(src.Rows())

	if d.config.Multiple {
		return d.decodeMulti(src, w, h)
	}

	points := gocv.NewMat()
	defer points.Close()
	straight := gocv.NewMat()
	defer straight.Close()

	payload := d.detector.DetectAndDecode(src, &points, &straight)
	if payload == "" || points.Empty() {
		return nil, nil
	}

	data, err := points.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read corners: %w", err)
	}
	quads := cornerQuads(data, w, h)
	if len(quads) == 0 {
		return nil, nil
	}
	return []Polygon{{Points: quads[0], Payload: payload}}, nil
}

// decodeMulti locates every code first, then decodes each quad on its own so a
// code that fails to decode does not hide the others.
func (d *QRDecoder) decodeMulti(src gocv.Mat, w, h float64) ([]Polygon, error) {
	points := gocv.NewMat()
	defer points.Close()

	if !d.detector.DetectMulti(src, &points) || points.Empty() {
		return nil, nil
	}

	data, err := points.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read corners: %w", err)
	}

	quads := cornerQuads(data, w, h)
	var polys []Polygon
	for i, quad := range quads {
		payload := d.decodeQuad(src, data[i*8:i*8+8])
		if payload == "" {
			continue
		}
		polys = append(polys, Polygon{Points: quad, Payload: payload})
	}
	return polys, nil
}

func (d *QRDecoder) decodeQuad(src gocv.Mat, corners []float32) string {
	quad := gocv.NewMatWithSize(4, 2, gocv.MatTypeCV32F)
	defer quad.Close()
	for k := 0; k < 4; k++ {
		quad.SetFloatAt(k, 0, corners[2*k])
		quad.SetFloatAt(k, 1, corners[2*k+1])
	}

	straight := gocv.NewMat()
	defer straight.Close()
	return d.detector.Decode(src, quad, &straight)
}

// cornerQuads splits interleaved pixel coordinates into groups of four
// normalized corners. A trailing partial group is dropped.
func cornerQuads(data []float32, w, h float64) [][]geometry.Vec2 {
	var quads [][]geometry.Vec2
	for q := 0; q+8 <= len(data); q += 8 {
		corners := make([]geometry.Vec2, 4)
		for k := range corners {
			corners[k] = geometry.Vec2{
				X: float64(data[q+2*k]) / w,
				Y: float64(data[q+2*k+1]) / h,
			}
		}
		quads = append(quads, corners)
	}
	return quads
}

// Close releases the decoder resources
func (d *QRDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.detector.Close()
}
