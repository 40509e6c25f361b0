package pipeline

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/detect"
	"github.com/kozaktomas/face-sorter/internal/facematch"
	"github.com/kozaktomas/face-sorter/internal/imaging"
)

// fakeDetector returns one canned response per call, in order.
type fakeDetector struct {
	responses [][]detect.Detection
	calls     int
}

func (f *fakeDetector) DetectFaces(_ context.Context, _ []byte) ([]detect.Detection, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.responses) {
		return nil, nil
	}
	return f.responses[idx], nil
}

type fakeChecker struct {
	capability detect.Capability
}

func (f fakeChecker) Check(_ context.Context) detect.Capability {
	return f.capability
}

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	// High-frequency pattern keeps the encoded file above the scanner's
	// minimum size bound.
	img := image.NewRGBA(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			img.Set(x, y, color.RGBA{R: uint8((x*7 + y*13) % 256), G: uint8((x * y) % 256), B: 40, A: 255})
		}
	}
	data, err := imaging.EncodeJPEG(img, 92)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		Detection: config.DetectionConfig{
			Rotations:      []int{0},
			ScoreThreshold: 0.20,
			MinFacePx:      18,
			Preprocess:     []string{"none"},
		},
		Dedupe: config.DedupeConfig{IoUThreshold: 0.55, CosineThreshold: 0.12},
		Cluster: config.ClusterConfig{
			Method:          "linkage",
			LinkageCutoff:   0.44,
			MinSamples:      1,
			MinClusterSize:  2,
			DBSCANEps:       0.48,
			DBSCANMinPoints: 1,
			BruteForceLimit: 2000,
		},
		Export: config.ExportConfig{ThumbSize: 256},
	}
}

func detection(emb []float32) []detect.Detection {
	return []detect.Detection{{
		BBox:      []float64{8, 8, 40, 40},
		DetScore:  0.9,
		Embedding: emb,
	}}
}

func TestRun_EndToEnd(t *testing.T) {
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	writeJPEG(t, inDir, "a.jpg")
	writeJPEG(t, inDir, "b.jpg")

	// Both photos show the same person; paths are visited in sorted
	// order so responses line up.
	emb := facematch.L2Normalize([]float32{1, 0.01, 0})
	detector := &fakeDetector{responses: [][]detect.Detection{
		detection(emb),
		detection(emb),
	}}
	checker := fakeChecker{capability: detect.Capability{Available: true, Model: "test"}}

	var events []Event
	p := New(detector, nil, checker, testPipelineConfig())
	result, err := p.Run(context.Background(), Options{
		InputDir:   inDir,
		OutputDir:  outDir,
		OnProgress: func(ev Event) { events = append(events, ev) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.OK || result.Groups != 1 || result.Moved != 2 {
		t.Fatalf("result = %+v", result)
	}

	entries, err := os.ReadDir(filepath.Join(outDir, "person_001"))
	if err != nil || len(entries) != 2 {
		t.Errorf("expected 2 files under person_001, got %d (err %v)", len(entries), err)
	}

	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	last := events[len(events)-1]
	if last.Percent != 100 {
		t.Errorf("final event percent = %d, want 100", last.Percent)
	}
	if events[0].Phase != PhaseScanning {
		t.Errorf("first phase = %q, want %q", events[0].Phase, PhaseScanning)
	}
}

func TestRun_NoFaces(t *testing.T) {
	inDir := t.TempDir()
	writeJPEG(t, inDir, "empty.jpg")

	p := New(&fakeDetector{}, nil, nil, testPipelineConfig())
	result, err := p.Run(context.Background(), Options{
		InputDir:  inDir,
		OutputDir: filepath.Join(t.TempDir(), "out"),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.OK {
		t.Fatal("expected failing result")
	}
	if result.Error != "no faces detected" {
		t.Errorf("result error = %q", result.Error)
	}
}

func TestRun_CapabilityUnavailable(t *testing.T) {
	checker := fakeChecker{capability: detect.Capability{Available: false, Reason: "connection refused"}}
	p := New(&fakeDetector{}, nil, checker, testPipelineConfig())

	_, err := p.Run(context.Background(), Options{InputDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected startup failure when the service is unavailable")
	}
}

func TestRun_Cancelled(t *testing.T) {
	inDir := t.TempDir()
	writeJPEG(t, inDir, "a.jpg")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(&fakeDetector{}, nil, nil, testPipelineConfig())
	if _, err := p.Run(ctx, Options{InputDir: inDir, OutputDir: t.TempDir()}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
