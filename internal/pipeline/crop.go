package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	_ "image/png"

	"github.com/ebs-ai/ewaste-vision/internal/detect"
)

// crop is an in-memory JPEG of one detection's image region. Crops live
// only for the duration of the owning detection's enrichment task.
type crop struct {
	Data   []byte
	Width  int
	Height int
}

// decodeImage decodes an uploaded image. A failure here is an input error
// and aborts the whole request.
func decodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrNoImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return img, nil
}

// cropRegion cuts the bounding box region out of img and re-encodes it as
// JPEG. The box is clamped to the image bounds; a box that falls entirely
// outside yields a zero-size crop.
func cropRegion(img image.Image, box detect.BBox) (*crop, error) {
	rect := image.Rect(int(box.X1), int(box.Y1), int(box.X2), int(box.Y2)).
		Intersect(img.Bounds())
	if rect.Empty() {
		return &crop{}, nil
	}

	region := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(region, region.Bounds(), img, rect.Min, draw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, region, nil); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}

	return &crop{
		Data:   buf.Bytes(),
		Width:  rect.Dx(),
		Height: rect.Dy(),
	}, nil
}

// tooSmall reports whether the crop is below the minimum pixel dimensions
// required for vision analysis.
func (c *crop) tooSmall(minSize int) bool {
	return c.Width < minSize || c.Height < minSize
}
