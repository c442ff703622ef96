package detect

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// ClientOpts configures a remote detector client.
type ClientOpts struct {
	BaseURL string
	// ConfidenceThreshold below which the inference service should drop
	// detections. Zero means the service default.
	ConfidenceThreshold float64
}

// Client talks to a detection inference service over HTTP. The service runs
// the actual model and returns raw boxes with class labels and confidences.
type Client struct {
	httpClient          *resty.Client
	confidenceThreshold float64
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// NewClient creates a remote detector client.
func NewClient(opts ClientOpts) *Client {
	c := &Client{confidenceThreshold: opts.ConfidenceThreshold}
	c.httpClient = resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("Accept", "application/json")
	return c
}

// Detect implements the Detector interface by posting the image to the
// inference service. A 503 from the service means the model is not loaded
// and maps to ErrModelUnavailable.
func (c *Client) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	result := &detectResponse{}

	req := c.httpClient.NewRequest().
		SetContext(ctx).
		SetFileReader("file", "image.jpg", bytes.NewReader(image)).
		SetResult(result)
	if c.confidenceThreshold > 0 {
		req.SetQueryParam("confidence", fmt.Sprintf("%g", c.confidenceThreshold))
	}

	res, err := req.Post("/v1/detect")
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	if res.StatusCode() == http.StatusServiceUnavailable {
		return nil, ErrModelUnavailable
	}
	if res.IsError() {
		return nil, fmt.Errorf("detection request failed: %s (status: %d)", res.Request.URL, res.StatusCode())
	}

	for i := range result.Detections {
		if result.Detections[i].ID == "" {
			result.Detections[i] = NewDetection(
				result.Detections[i].Category,
				result.Detections[i].Confidence,
				result.Detections[i].BBox,
			)
		}
	}
	return result.Detections, nil
}
