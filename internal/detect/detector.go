package detect

import (
	"context"
	"errors"
)

// ErrModelUnavailable indicates that no detection model is loaded or the
// detection service cannot be reached.
var ErrModelUnavailable = errors.New("detection model unavailable")

// Detector produces raw detections for an encoded image. Implementations
// must either return fully populated detections or an error, never a
// partially filled Detection.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}
