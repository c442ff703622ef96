package detect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b BBox
		want float64
	}{
		{
			name: "identical boxes",
			a:    BBox{10, 10, 50, 50},
			b:    BBox{10, 10, 50, 50},
			want: 1,
		},
		{
			name: "no overlap",
			a:    BBox{0, 0, 10, 10},
			b:    BBox{20, 20, 30, 30},
			want: 0,
		},
		{
			name: "touching edges",
			a:    BBox{0, 0, 10, 10},
			b:    BBox{10, 0, 20, 10},
			want: 0,
		},
		{
			name: "half overlap",
			a:    BBox{0, 0, 10, 10},
			b:    BBox{5, 0, 15, 10},
			// intersection 50, union 150
			want: 1.0 / 3.0,
		},
		{
			name: "degenerate zero-area boxes",
			a:    BBox{10, 10, 10, 10},
			b:    BBox{10, 10, 10, 10},
			want: 0,
		},
		{
			name: "contained box",
			a:    BBox{0, 0, 10, 10},
			b:    BBox{2, 2, 4, 4},
			want: 0.04,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, IoU(tt.a, tt.b), 1e-9)
			assert.InDelta(t, tt.want, IoU(tt.b, tt.a), 1e-9, "IoU must be symmetric")
		})
	}
}

func TestSuppressKeepsHighestConfidence(t *testing.T) {
	detections := []Detection{
		NewDetection("Laptop", 0.6, BBox{10, 10, 50, 50}),
		NewDetection("Laptop", 0.9, BBox{10, 10, 50, 50}),
	}

	kept := Suppress(detections, DefaultIoUThreshold)

	require.Len(t, kept, 1)
	assert.Equal(t, 0.9, kept[0].Confidence)
}

func TestSuppressKeepsNonOverlapping(t *testing.T) {
	detections := []Detection{
		NewDetection("Laptop", 0.9, BBox{0, 0, 50, 50}),
		NewDetection("Smartphone", 0.8, BBox{100, 100, 150, 150}),
		NewDetection("Router", 0.7, BBox{200, 0, 250, 50}),
	}

	kept := Suppress(detections, DefaultIoUThreshold)

	assert.Len(t, kept, 3)
}

func TestSuppressThresholdBoundary(t *testing.T) {
	// IoU of exactly the threshold is not "above" it, so both survive.
	a := NewDetection("Laptop", 0.9, BBox{0, 0, 10, 10})
	b := NewDetection("Laptop", 0.8, BBox{0, 0, 10, 10})

	kept := Suppress([]Detection{a, b}, 1.0)

	assert.Len(t, kept, 2)
}

func TestSuppressDeterministicTieBreak(t *testing.T) {
	// Equal confidence: input order decides, first one wins every time.
	first := NewDetection("Laptop", 0.8, BBox{10, 10, 50, 50})
	second := NewDetection("Tablet", 0.8, BBox{12, 12, 52, 52})
	detections := []Detection{first, second}

	for i := 0; i < 10; i++ {
		kept := Suppress(detections, DefaultIoUThreshold)
		require.Len(t, kept, 1)
		assert.Equal(t, first.ID, kept[0].ID)
	}
}

func TestSuppressDoesNotMutateInput(t *testing.T) {
	detections := []Detection{
		NewDetection("Laptop", 0.6, BBox{10, 10, 50, 50}),
		NewDetection("Laptop", 0.9, BBox{10, 10, 50, 50}),
	}

	Suppress(detections, DefaultIoUThreshold)

	assert.Equal(t, 0.6, detections[0].Confidence)
	assert.Equal(t, 0.9, detections[1].Confidence)
}

func TestSuppressEmpty(t *testing.T) {
	assert.Empty(t, Suppress(nil, DefaultIoUThreshold))
}

func TestSuppressOutputPairwiseIoU(t *testing.T) {
	detections := []Detection{
		NewDetection("Laptop", 0.9, BBox{0, 0, 100, 100}),
		NewDetection("Laptop", 0.8, BBox{10, 10, 110, 110}),
		NewDetection("Tablet", 0.7, BBox{50, 50, 150, 150}),
		NewDetection("Mouse", 0.6, BBox{300, 300, 350, 350}),
		NewDetection("Mouse", 0.5, BBox{305, 305, 355, 355}),
	}

	kept := Suppress(detections, DefaultIoUThreshold)

	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			assert.LessOrEqual(t, IoU(kept[i].BBox, kept[j].BBox), DefaultIoUThreshold)
		}
	}
}

func TestBBoxJSONRoundTrip(t *testing.T) {
	box := BBox{10.5, 20, 30.5, 40}

	data, err := json.Marshal(box)
	require.NoError(t, err)
	assert.JSONEq(t, `[10.5, 20, 30.5, 40]`, string(data))

	var decoded BBox
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, box, decoded)
}

func TestBBoxUnmarshalRejectsObject(t *testing.T) {
	var box BBox
	err := json.Unmarshal([]byte(`{"x1": 1}`), &box)
	assert.Error(t, err)
}

func TestNewDetectionAssignsUniqueIDs(t *testing.T) {
	a := NewDetection("Laptop", 0.9, BBox{0, 0, 1, 1})
	b := NewDetection("Laptop", 0.9, BBox{0, 0, 1, 1})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
