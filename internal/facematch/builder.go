package facematch

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/detect"
	"github.com/kozaktomas/face-sorter/internal/imaging"
)

const (
	detectJPEGQuality = 92
	proposalPadRatio  = 0.12 // ROI padding around proposal boxes
)

// Builder turns one image into a minimal, non-redundant set of FaceRecords.
//
// Stages run in order and stop as soon as one yields at least one detection:
// the precise detector at each configured rotation, then the preprocessing
// chain, then low-precision region proposals re-detected per padded ROI.
// The surviving union is deduplicated with DedupeIoUCosine.
type Builder struct {
	detector detect.Detector
	proposer detect.Proposer
	det      config.DetectionConfig
	dedupe   config.DedupeConfig
}

// NewBuilder creates a record builder. proposer may be nil, disabling the
// proposal fallback stage.
func NewBuilder(detector detect.Detector, proposer detect.Proposer, det config.DetectionConfig, dedupe config.DedupeConfig) *Builder {
	return &Builder{
		detector: detector,
		proposer: proposer,
		det:      det,
		dedupe:   dedupe,
	}
}

// BuildRecords detects, filters and deduplicates the faces of one image.
// An unreadable image returns an error; callers treat it as a skip, never
// as a batch failure. An image with no detectable faces returns an empty
// slice and no error.
func (b *Builder) BuildRecords(ctx context.Context, path string) ([]FaceRecord, error) {
	img, err := imaging.Load(path)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// 1) precise detector across rotations
	candidates, err := b.detectRotations(ctx, img, width, height)
	if err != nil {
		return nil, err
	}

	// 2) if empty - preprocess the whole image and retry
	if len(candidates) == 0 {
		for _, mode := range b.det.Preprocess {
			if mode == "none" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			candidates, err = b.detectRotations(ctx, imaging.Preprocess(img, mode), width, height)
			if err != nil {
				return nil, err
			}
			if len(candidates) > 0 {
				break
			}
		}
	}

	// 3) region proposal fallback
	if len(candidates) == 0 && b.proposer != nil {
		candidates, err = b.detectProposals(ctx, img, width, height)
		if err != nil {
			return nil, err
		}
	}

	// 4) dedupe per-image and assign dense face indices
	deduped := DedupeIoUCosine(candidates, b.dedupe.IoUThreshold, b.dedupe.CosineThreshold)
	records := make([]FaceRecord, 0, len(deduped))
	for j, c := range deduped {
		records = append(records, FaceRecord{
			Image:     path,
			FaceIndex: j,
			BBox:      c.BBox,
			Embedding: c.Embedding,
			DetScore:  c.Score,
		})
	}
	return records, nil
}

// detectRotations runs the detector on the image at every configured
// rotation, remapping boxes back to original coordinates.
func (b *Builder) detectRotations(ctx context.Context, img image.Image, width, height int) ([]Candidate, error) {
	var candidates []Candidate
	for _, angle := range b.det.Rotations {
		rotated := imaging.Rotate(img, angle)
		data, err := imaging.EncodeJPEG(rotated, detectJPEGQuality)
		if err != nil {
			return nil, err
		}

		detections, err := b.detector.DetectFaces(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("face detection failed: %w", err)
		}

		for _, det := range detections {
			if det.DetScore < b.det.ScoreThreshold {
				continue
			}
			bbox := imaging.MapBBoxBack(det.BBox, angle, width, height)
			bbox = imaging.ClipBBox(bbox, width, height)
			if BBoxSide(bbox) < b.det.MinFacePx {
				continue
			}
			emb := L2Normalize(det.Embedding)
			if emb == nil {
				continue
			}
			candidates = append(candidates, Candidate{BBox: bbox, Score: det.DetScore, Embedding: emb})
		}
	}
	return candidates, nil
}

// detectProposals asks the cheap proposer for candidate regions and re-runs
// the precise detector on each padded region. Only the largest face per
// region is kept, with its box translated back to full-image coordinates.
func (b *Builder) detectProposals(ctx context.Context, img image.Image, width, height int) ([]Candidate, error) {
	data, err := imaging.EncodeJPEG(img, detectJPEGQuality)
	if err != nil {
		return nil, err
	}

	proposals, err := b.proposer.ProposeRegions(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("region proposal failed: %w", err)
	}

	var candidates []Candidate
	for _, p := range proposals {
		if len(p) != 4 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pad := int(proposalPadRatio * max(p[2]-p[0], p[3]-p[1]))
		x1 := clampInt(int(p[0])-pad, 0, width)
		y1 := clampInt(int(p[1])-pad, 0, height)
		x2 := clampInt(int(p[2])+pad, 0, width)
		y2 := clampInt(int(p[3])+pad, 0, height)
		if x2 <= x1 || y2 <= y1 {
			continue
		}

		roi := cropRegion(img, x1, y1, x2, y2)
		roiData, err := imaging.EncodeJPEG(roi, detectJPEGQuality)
		if err != nil {
			continue
		}

		detections, err := b.detector.DetectFaces(ctx, roiData)
		if err != nil {
			return nil, fmt.Errorf("face detection on proposal failed: %w", err)
		}
		if len(detections) == 0 {
			continue
		}

		// Keep only the largest face per region.
		best := detections[0]
		for _, d := range detections[1:] {
			if BBoxArea(d.BBox) > BBoxArea(best.BBox) {
				best = d
			}
		}
		if len(best.BBox) != 4 {
			continue
		}

		bbox := []float64{
			best.BBox[0] + float64(x1),
			best.BBox[1] + float64(y1),
			best.BBox[2] + float64(x1),
			best.BBox[3] + float64(y1),
		}
		bbox = imaging.ClipBBox(bbox, width, height)
		if BBoxSide(bbox) < b.det.MinFacePx {
			continue
		}
		emb := L2Normalize(best.Embedding)
		if emb == nil {
			continue
		}
		candidates = append(candidates, Candidate{BBox: bbox, Score: best.DetScore, Embedding: emb})
	}
	return candidates, nil
}

// cropRegion copies a rectangle out of an image into a fresh buffer.
func cropRegion(img image.Image, x1, y1, x2, y2 int) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	for y := y1; y < y2; y++ {
		for x := x1; x < x2; x++ {
			dst.Set(x-x1, y-y1, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
