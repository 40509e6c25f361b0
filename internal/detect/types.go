package detect

import "context"

// Detection represents a single raw face detection from the face-analysis server
type Detection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels
	DetScore  float64   `json:"det_score"`
}

// Detector produces face detections with embeddings for an encoded image.
type Detector interface {
	DetectFaces(ctx context.Context, imageData []byte) ([]Detection, error)
}

// Proposer produces cheap, low-precision face region proposals (boxes only).
// Used as a last-resort fallback when the precise detector finds nothing.
type Proposer interface {
	ProposeRegions(ctx context.Context, imageData []byte) ([][]float64, error)
}

// Capability reports whether the face-analysis capability is usable.
// Checked once at startup; the pipeline refuses to start when unavailable.
type Capability struct {
	Available bool   `json:"available"`
	Model     string `json:"model,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Checker probes the face-analysis capability.
type Checker interface {
	Check(ctx context.Context) Capability
}
