package facematch

// ComputeIoU calculates Intersection over Union between two bounding boxes.
// bbox1 and bbox2 are [x1, y1, x2, y2] in the same coordinate system.
func ComputeIoU(bbox1, bbox2 []float64) float64 {
	if len(bbox1) != 4 || len(bbox2) != 4 {
		return 0
	}

	// Calculate intersection.
	x1 := max(bbox1[0], bbox2[0])
	y1 := max(bbox1[1], bbox2[1])
	x2 := min(bbox1[2], bbox2[2])
	y2 := min(bbox1[3], bbox2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := (x2 - x1) * (y2 - y1)

	// Calculate union.
	area1 := (bbox1[2] - bbox1[0]) * (bbox1[3] - bbox1[1])
	area2 := (bbox2[2] - bbox2[0]) * (bbox2[3] - bbox2[1])
	union := area1 + area2 - intersection

	if union <= 0 {
		return 0
	}

	return intersection / union
}

// WeightedAverageBBox collapses a set of boxes into one, weighting each
// corner coordinate by the corresponding detection score.
func WeightedAverageBBox(boxes [][]float64, weights []float64) []float64 {
	if len(boxes) == 0 || len(boxes) != len(weights) {
		return nil
	}

	var total float64
	for _, w := range weights {
		total += w
	}
	total += 1e-9 // Guard against an all-zero weight set

	out := make([]float64, 4)
	for i, b := range boxes {
		if len(b) != 4 {
			return nil
		}
		w := weights[i] / total
		for c := 0; c < 4; c++ {
			out[c] += b[c] * w
		}
	}
	return out
}

// BBoxSide returns the shorter side length of a bounding box.
func BBoxSide(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	return min(bbox[2]-bbox[0], bbox[3]-bbox[1])
}

// BBoxArea returns the area of a bounding box.
func BBoxArea(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}
