package detect

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultIoUThreshold is the overlap above which two detections are
// considered duplicates of the same object.
const DefaultIoUThreshold = 0.5

// BBox is an axis-aligned bounding box with x1 < x2 and y1 < y2.
// It serializes as a [x1, y1, x2, y2] array to stay compatible with the
// detector's wire format.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

func (b BBox) Width() float64  { return b.X2 - b.X1 }
func (b BBox) Height() float64 { return b.Y2 - b.Y1 }

func (b BBox) Area() float64 {
	if b.X2 <= b.X1 || b.Y2 <= b.Y1 {
		return 0
	}
	return (b.X2 - b.X1) * (b.Y2 - b.Y1)
}

func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

func (b *BBox) UnmarshalJSON(data []byte) error {
	var coords [4]float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("bbox must be a [x1, y1, x2, y2] array: %w", err)
	}
	b.X1, b.Y1, b.X2, b.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// Detection is one raw output unit from the detector: a box, the detector's
// native class label and a confidence in [0, 1].
type Detection struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// NewDetection creates a detection with a fresh unique ID.
func NewDetection(category string, confidence float64, box BBox) Detection {
	return Detection{
		ID:         uuid.NewString(),
		Category:   category,
		Confidence: confidence,
		BBox:       box,
	}
}

// IoU returns the Intersection-over-Union of two boxes in [0, 1].
// Degenerate boxes with zero union area yield 0.
func IoU(a, b BBox) float64 {
	x1 := max(a.X1, b.X1)
	y1 := max(a.Y1, b.Y1)
	x2 := min(a.X2, b.X2)
	y2 := min(a.Y2, b.Y2)

	intersection := max(0, x2-x1) * max(0, y2-y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// Suppress drops detections that overlap an already-accepted detection with
// IoU above iouThreshold. Candidates are considered in order of descending
// confidence, with input order breaking ties, so the highest-confidence
// detection of an overlapping group always survives and the result is
// deterministic for identical input.
func Suppress(detections []Detection, iouThreshold float64) []Detection {
	if len(detections) == 0 {
		return nil
	}

	sorted := make([]Detection, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	for _, det := range sorted {
		overlapping := false
		for _, accepted := range kept {
			if iou := IoU(det.BBox, accepted.BBox); iou > iouThreshold {
				log.Debug().
					Str("category", det.Category).
					Float64("iou", iou).
					Msg("suppressed overlapping detection")
				overlapping = true
				break
			}
		}
		if !overlapping {
			kept = append(kept, det)
		}
	}
	return kept
}
