// Package facematch builds deduplicated face records from raw detections.
// It owns the per-image detection strategy (rotations, preprocessing,
// proposal fallback) and the IoU + cosine deduplication step.
package facematch

// FaceRecord is one physical face as seen in one image, after per-image
// deduplication. Embedding is always stored L2-normalized.
type FaceRecord struct {
	Image     string    `json:"image"`      // source path (before move)
	FaceIndex int       `json:"face_index"` // index of face within image after dedupe
	BBox      []float64 `json:"bbox"`       // [x1, y1, x2, y2] in original image pixels
	Embedding []float32 `json:"embedding"`  // unit-norm
	DetScore  float64   `json:"det_score"`
}

// Candidate is a raw detection being considered for deduplication.
type Candidate struct {
	BBox      []float64
	Score     float64
	Embedding []float32 // unit-norm
}
