package facematch

import (
	"math"
	"testing"
)

func TestComputeIoU(t *testing.T) {
	tests := []struct {
		name     string
		bbox1    []float64
		bbox2    []float64
		expected float64
	}{
		{
			name:     "identical boxes",
			bbox1:    []float64{0, 0, 10, 10},
			bbox2:    []float64{0, 0, 10, 10},
			expected: 1.0,
		},
		{
			name:     "no overlap",
			bbox1:    []float64{0, 0, 10, 10},
			bbox2:    []float64{20, 20, 30, 30},
			expected: 0.0,
		},
		{
			name:     "partial overlap",
			bbox1:    []float64{0, 0, 10, 10},
			bbox2:    []float64{5, 5, 15, 15},
			expected: 25.0 / 175.0, // intersection=25, union=100+100-25=175
		},
		{
			name:     "one inside other",
			bbox1:    []float64{0, 0, 20, 20},
			bbox2:    []float64{5, 5, 15, 15},
			expected: 100.0 / 400.0, // intersection=100, union=400 (larger box)
		},
		{
			name:     "invalid bbox1",
			bbox1:    []float64{0, 0, 10},
			bbox2:    []float64{0, 0, 10, 10},
			expected: 0.0,
		},
		{
			name:     "empty bboxes",
			bbox1:    []float64{},
			bbox2:    []float64{},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeIoU(tt.bbox1, tt.bbox2)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("ComputeIoU(%v, %v) = %v, want %v", tt.bbox1, tt.bbox2, result, tt.expected)
			}
		})
	}
}

func TestWeightedAverageBBox(t *testing.T) {
	boxes := [][]float64{
		{0, 0, 10, 10},
		{10, 10, 20, 20},
	}
	weights := []float64{1, 1}

	got := WeightedAverageBBox(boxes, weights)
	want := []float64{5, 5, 15, 15}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 0.001 {
			t.Errorf("WeightedAverageBBox[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWeightedAverageBBox_WeightsDominant(t *testing.T) {
	boxes := [][]float64{
		{0, 0, 10, 10},
		{100, 100, 110, 110},
	}
	weights := []float64{0.99, 0.01}

	got := WeightedAverageBBox(boxes, weights)
	// Result must sit near the heavily weighted box.
	if got[0] > 2 || got[2] > 12 {
		t.Errorf("expected result near the dominant box, got %v", got)
	}
}

func TestBBoxSide(t *testing.T) {
	if got := BBoxSide([]float64{0, 0, 30, 50}); got != 30 {
		t.Errorf("BBoxSide = %v, want 30", got)
	}
	if got := BBoxSide([]float64{0, 0, 30}); got != 0 {
		t.Errorf("BBoxSide of invalid box = %v, want 0", got)
	}
}

func TestBBoxArea(t *testing.T) {
	if got := BBoxArea([]float64{0, 0, 10, 20}); got != 200 {
		t.Errorf("BBoxArea = %v, want 200", got)
	}
	if got := BBoxArea([]float64{10, 10, 0, 0}); got != 0 {
		t.Errorf("BBoxArea of inverted box = %v, want 0", got)
	}
}
