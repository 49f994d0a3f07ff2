package detection

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when output tensors disagree on the number of
// detections.
var ErrShapeMismatch = errors.New("detection: tensor shape mismatch")

// DefaultInputSize is the side of the square model input.
const DefaultInputSize = 640

// DecodeBoxes reads the two-output detector format: coords is [N,4] with
// center x, center y, width and height in model pixels, labels is [N] class
// indices. The model reports no scores, so boxes are unscored.
func DecodeBoxes(coords, labels []float32, inputSize float64, classes []string) ([]Box, error) {
	if len(coords)%4 != 0 {
		return nil, fmt.Errorf("%w: coords length %d is not a multiple of 4", ErrShapeMismatch, len(coords))
	}
	n := len(coords) / 4
	if len(labels) != n {
		return nil, fmt.Errorf("%w: %d boxes but %d labels", ErrShapeMismatch, n, len(labels))
	}
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}

	boxes := make([]Box, 0, n)
	for i := 0; i < n; i++ {
		boxes = append(boxes, Box{
			CenterX:   float64(coords[i*4]),
			CenterY:   float64(coords[i*4+1]),
			Width:     float64(coords[i*4+2]),
			Height:    float64(coords[i*4+3]),
			InputSize: inputSize,
			Label:     ClassName(classes, int(labels[i])),
		})
	}
	return boxes, nil
}

// ClassName looks up a class index, falling back to "class_<id>".
func ClassName(classes []string, id int) string {
	if id >= 0 && id < len(classes) {
		return classes[id]
	}
	return fmt.Sprintf("class_%d", id)
}
