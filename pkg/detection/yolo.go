package detection

import (
	"image"

	"gocv.io/x/gocv"
)

// YOLOConfig holds YOLOv8 decoding parameters.
type YOLOConfig struct {
	ConfidenceThresh float32
	NMSThresh        float32
	InputSize        int
	Classes          []string
}

// DefaultYOLOConfig returns production defaults for YOLOv8n.
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ConfidenceThresh: 0.25,
		NMSThresh:        0.45,
		InputSize:        DefaultInputSize,
		Classes:          COCOClasses,
	}
}

// ParseYOLOv8 decodes a raw YOLOv8 output laid out as [attrs][candidates]:
// rows candidates, each with cols attributes (4 box values then class scores).
// Overlapping boxes are suppressed with OpenCV NMS.
func ParseYOLOv8(data []float32, rows, cols int, cfg YOLOConfig) []Box {
	if rows <= 0 || cols <= 4 || len(data) < rows*cols {
		return nil
	}

	var boxes []image.Rectangle
	var confidences []float32
	var classIDs []int
	var centers [][4]float32

	for i := 0; i < rows; i++ {
		maxScore := float32(0)
		maxClassID := 0

		for c := 4; c < cols; c++ {
			score := data[c*rows+i]
			if score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}

		if maxScore < cfg.ConfidenceThresh {
			continue
		}

		cx := data[0*rows+i]
		cy := data[1*rows+i]
		w := data[2*rows+i]
		h := data[3*rows+i]

		boxes = append(boxes, image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		confidences = append(confidences, maxScore)
		classIDs = append(classIDs, maxClassID)
		centers = append(centers, [4]float32{cx, cy, w, h})
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, cfg.ConfidenceThresh, cfg.NMSThresh)

	size := float64(cfg.InputSize)
	if size <= 0 {
		size = DefaultInputSize
	}

	out := make([]Box, 0, len(indices))
	for _, idx := range indices {
		c := centers[idx]
		out = append(out, Box{
			CenterX:    float64(c[0]),
			CenterY:    float64(c[1]),
			Width:      float64(c[2]),
			Height:     float64(c[3]),
			InputSize:  size,
			Label:      ClassName(cfg.Classes, classIDs[idx]),
			Confidence: float64(confidences[idx]),
			Scored:     true,
		})
	}
	return out
}

// COCOClasses contains the 80 COCO class names
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}
