package export

import (
	"encoding/csv"
	"fmt"
	"os"
)

// LedgerRow records one (person, image) placement in mapping.csv.
type LedgerRow struct {
	PersonID         string
	ImageSrc         string
	DestPath         string
	FaceIndex        int
	BBox             []float64
	DetScore         float64
	CosineToCentroid float64
	CanonicalOwner   string
}

// writeLedger serializes all placements as a flat CSV table.
func writeLedger(path string, rows []LedgerRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"person_id", "image_src", "dest_path", "face_idx", "bbox", "det_score", "cosine_to_centroid", "canonical_owner"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write ledger header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.PersonID,
			row.ImageSrc,
			row.DestPath,
			fmt.Sprintf("%d", row.FaceIndex),
			formatBBox(row.BBox),
			fmt.Sprintf("%.4f", row.DetScore),
			fmt.Sprintf("%.4f", row.CosineToCentroid),
			row.CanonicalOwner,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write ledger row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatBBox(bbox []float64) string {
	if len(bbox) != 4 {
		return ""
	}
	return fmt.Sprintf("%.1f;%.1f;%.1f;%.1f", bbox[0], bbox[1], bbox[2], bbox[3])
}
