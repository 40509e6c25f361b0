package export

import (
	"context"
	"encoding/csv"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/facematch"
	"github.com/kozaktomas/face-sorter/internal/imaging"
)

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(4 * x), G: uint8(4 * y), B: 90, A: 255})
		}
	}
	data, err := imaging.EncodeJPEG(img, 92)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func unit(vals ...float32) []float32 {
	return facematch.L2Normalize(vals)
}

func record(img string, faceIdx int, emb []float32) facematch.FaceRecord {
	return facematch.FaceRecord{
		Image:     img,
		FaceIndex: faceIdx,
		BBox:      []float64{8, 8, 40, 40},
		Embedding: emb,
		DetScore:  0.9,
	}
}

func newExporter(outDir string) *Exporter {
	return New(outDir, config.ExportConfig{ThumbSize: 256})
}

func readLedger(t *testing.T, outDir string) [][]string {
	t.Helper()
	f, err := os.Open(filepath.Join(outDir, "mapping.csv"))
	if err != nil {
		t.Fatalf("ledger missing: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse ledger: %v", err)
	}
	return rows
}

func TestExport_SingleImageSinglePerson(t *testing.T) {
	srcDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")
	src := writeJPEG(t, srcDir, "portrait.jpg")

	recs := []facematch.FaceRecord{record(src, 0, unit(1, 0, 0))}
	summary, err := newExporter(outDir).Export(context.Background(), recs, []int{0})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !summary.OK || summary.Groups != 1 || summary.Moved != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	dest := filepath.Join(outDir, "person_001", "portrait.jpg")
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("moved file missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file must be gone after move")
	}

	thumbs, err := os.ReadDir(filepath.Join(outDir, "thumbs"))
	if err != nil || len(thumbs) != 1 {
		t.Errorf("expected 1 thumbnail, got %d (err %v)", len(thumbs), err)
	}

	rows := readLedger(t, outDir)
	if len(rows) != 2 { // header + one row
		t.Fatalf("expected 1 ledger row, got %d", len(rows)-1)
	}
	if rows[1][0] != "person_001" || rows[1][7] != "person_001" {
		t.Errorf("ledger row = %v", rows[1])
	}
}

func TestExport_GroupImageOwnerAndLink(t *testing.T) {
	srcDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")

	soloA := writeJPEG(t, srcDir, "alice.jpg")
	soloB := writeJPEG(t, srcDir, "bob.jpg")
	group := writeJPEG(t, srcDir, "together.jpg")

	embA := unit(1, 0, 0)
	embB := unit(0, 1, 0)
	recs := []facematch.FaceRecord{
		record(soloA, 0, embA),
		record(soloB, 0, embB),
		record(group, 0, embA),
		record(group, 1, embB),
	}
	labels := []int{0, 1, 0, 1}

	summary, err := newExporter(outDir).Export(context.Background(), recs, labels)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if summary.Groups != 2 || summary.Moved != 3 {
		t.Fatalf("summary = %+v", summary)
	}

	// The group photo's bytes live under the smallest person id; the
	// other person reaches it through a link.
	owned := filepath.Join(outDir, "person_001", "together.jpg")
	linked := filepath.Join(outDir, "person_002", "together.jpg")

	ownedInfo, err := os.Stat(owned)
	if err != nil {
		t.Fatalf("owner copy missing: %v", err)
	}
	linkedInfo, err := os.Stat(linked)
	if err != nil {
		t.Fatalf("link missing: %v", err)
	}
	if !os.SameFile(ownedInfo, linkedInfo) {
		t.Error("link must reference the owner's bytes, not a copy")
	}

	rows := readLedger(t, outDir)
	if len(rows)-1 != 4 { // 2 singles + 2 group memberships
		t.Fatalf("expected 4 ledger rows, got %d", len(rows)-1)
	}
	for _, row := range rows[1:] {
		if row[1] == group && row[7] != "person_001" {
			t.Errorf("group row owner = %q, want person_001", row[7])
		}
	}
}

func TestExport_FilenameCollision(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	src1 := writeJPEG(t, filepath.Join(t.TempDir(), "a"), "photo.jpg")
	src2 := writeJPEG(t, filepath.Join(t.TempDir(), "b"), "photo.jpg")

	emb := unit(1, 0, 0)
	recs := []facematch.FaceRecord{
		record(src1, 0, emb),
		record(src2, 0, emb),
	}

	summary, err := newExporter(outDir).Export(context.Background(), recs, []int{0, 0})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if summary.Moved != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	if _, err := os.Stat(filepath.Join(outDir, "person_001", "photo.jpg")); err != nil {
		t.Errorf("first file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "person_001", "photo__1.jpg")); err != nil {
		t.Errorf("disambiguated file missing: %v", err)
	}
}

func TestExport_NoStableClusters(t *testing.T) {
	src := writeJPEG(t, t.TempDir(), "noise.jpg")
	recs := []facematch.FaceRecord{record(src, 0, unit(1, 0, 0))}

	_, err := newExporter(filepath.Join(t.TempDir(), "out")).Export(context.Background(), recs, []int{-1})
	if !errors.Is(err, ErrNoStableClusters) {
		t.Fatalf("expected ErrNoStableClusters, got %v", err)
	}

	// The failing run must not have touched the source.
	if _, err := os.Stat(src); err != nil {
		t.Errorf("source moved despite failure: %v", err)
	}
}

func TestExport_EstablishmentFallback(t *testing.T) {
	srcDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "out")

	// Only group images: establishment falls back to clusters with two
	// or more members.
	g1 := writeJPEG(t, srcDir, "party1.jpg")
	g2 := writeJPEG(t, srcDir, "party2.jpg")

	embA := unit(1, 0, 0)
	embB := unit(0, 1, 0)
	recs := []facematch.FaceRecord{
		record(g1, 0, embA),
		record(g1, 1, embB),
		record(g2, 0, embA),
		record(g2, 1, embB),
	}
	labels := []int{0, 1, 0, 1}

	summary, err := newExporter(outDir).Export(context.Background(), recs, labels)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if summary.Groups != 2 || summary.Moved != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestExport_Cancelled(t *testing.T) {
	src := writeJPEG(t, t.TempDir(), "one.jpg")
	recs := []facematch.FaceRecord{record(src, 0, unit(1, 0, 0))}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newExporter(filepath.Join(t.TempDir(), "out")).Export(ctx, recs, []int{0})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestUniqueDest(t *testing.T) {
	dir := t.TempDir()
	if got := uniqueDest(dir, "a.jpg"); got != filepath.Join(dir, "a.jpg") {
		t.Errorf("uniqueDest = %q", got)
	}
	writeJPEG(t, dir, "a.jpg")
	if got := uniqueDest(dir, "a.jpg"); got != filepath.Join(dir, "a__1.jpg") {
		t.Errorf("uniqueDest after collision = %q", got)
	}
}

func TestSafeFileName(t *testing.T) {
	if got := SafeFileName("Jiří.jpg"); got != "Jiri.jpg" {
		t.Errorf("SafeFileName = %q, want %q", got, "Jiri.jpg")
	}
}
