package detection

import (
	"fmt"
	"slices"
)

// Filter drops detections by label and confidence before they reach the
// anchoring path.
type Filter struct {
	// Labels is the allow-list. Empty accepts every label.
	Labels []string

	// MinConfidence applies to scored detections only.
	MinConfidence float64
}

// Passes reports whether a detection with this label and confidence is kept.
// Unscored detections always pass the confidence check.
func (f Filter) Passes(label string, confidence float64, scored bool) bool {
	if len(f.Labels) > 0 && !slices.Contains(f.Labels, label) {
		return false
	}
	if scored && confidence < f.MinConfidence {
		return false
	}
	return true
}

// Allow applies the filter to a detection. Polygons have no label class and no
// score, so they are always kept.
func (f Filter) Allow(det Detection) bool {
	switch d := det.(type) {
	case Box:
		return f.Passes(d.Label, d.Confidence, d.Scored)
	case *Box:
		return d != nil && f.Passes(d.Label, d.Confidence, d.Scored)
	case nil:
		return false
	default:
		return true
	}
}

// Apply returns the detections that pass.
func (f Filter) Apply(dets []Detection) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if f.Allow(d) {
			out = append(out, d)
		}
	}
	return out
}

// FormatLabel renders a marker label, appending the confidence as a whole
// percentage when the detection is scored and at least minConfidence.
func FormatLabel(label string, confidence float64, scored bool, minConfidence float64) string {
	if !scored || confidence < minConfidence {
		return label
	}
	return fmt.Sprintf("%s (%.0f%%)", label, confidence*100)
}
