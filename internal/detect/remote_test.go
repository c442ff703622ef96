package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDetect(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/detect", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"detections": []map[string]any{
				{"id": "det-1", "category": "Laptop", "confidence": 0.92, "bbox": []float64{10, 10, 50, 50}},
				{"category": "Smartphone", "confidence": 0.71, "bbox": []float64{60, 60, 90, 90}},
			},
		})
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	detections, err := client.Detect(context.Background(), []byte("fake-image"))

	require.NoError(t, err)
	require.Len(t, detections, 2)
	assert.Equal(t, "det-1", detections[0].ID)
	assert.Equal(t, "Laptop", detections[0].Category)
	assert.Equal(t, BBox{10, 10, 50, 50}, detections[0].BBox)
	// Missing IDs get assigned locally.
	assert.NotEmpty(t, detections[1].ID)
}

func TestClientDetectModelUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	_, err := client.Detect(context.Background(), []byte("fake-image"))

	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestClientDetectServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	_, err := client.Detect(context.Background(), []byte("fake-image"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrModelUnavailable)
}

func TestClientDetectEmpty(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"detections": []}`))
	}))
	defer ts.Close()

	client := NewClient(ClientOpts{BaseURL: ts.URL})
	detections, err := client.Detect(context.Background(), []byte("fake-image"))

	require.NoError(t, err)
	assert.Empty(t, detections)
}
