// Package export physically organizes photos into per-person folders with
// move-only semantics: every file's bytes live in exactly one place, group
// photos are reachable from other members via links.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-sorter/internal/cluster"
	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/facematch"
	"github.com/kozaktomas/face-sorter/internal/imaging"
)

var (
	// ErrNoFaces marks a run where detection produced no usable records.
	ErrNoFaces = errors.New("no faces detected")

	// ErrNoStableClusters marks a run where no cluster passed the
	// establishment rule.
	ErrNoStableClusters = errors.New("no stable clusters")
)

// Summary is the terminal result of an export run.
type Summary struct {
	OK     bool   `json:"ok"`
	Groups int    `json:"groups"`
	Moved  int    `json:"moved"`
	Out    string `json:"out"`
	Error  string `json:"error,omitempty"`
}

// Exporter moves clustered photos under outDir, one folder per person, and
// writes the mapping.csv ledger plus face thumbnails.
type Exporter struct {
	outDir    string
	thumbSize int
}

func New(outDir string, cfg config.ExportConfig) *Exporter {
	return &Exporter{outDir: outDir, thumbSize: cfg.ThumbSize}
}

// Export runs the move-only plan for the final labels.
//
// A label becomes an exportable person when it is the sole person of at
// least one single-person image; if no label qualifies, every cluster with
// two or more members is established instead; if that also yields nothing
// the run fails with ErrNoStableClusters. Single-person images are moved
// into their person's folder. Group images are moved once, into the folder
// of the person with the smallest id, and linked from the others.
//
// Moves performed before a failure stay in place; the move is the unit of
// work and is never rolled back.
func (e *Exporter) Export(ctx context.Context, recs []facematch.FaceRecord, labels []int) (*Summary, error) {
	if err := os.MkdirAll(e.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	thumbsDir := filepath.Join(e.outDir, "thumbs")
	if err := os.MkdirAll(thumbsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbs directory: %w", err)
	}

	// Group record indices per label and per image, noise excluded.
	clusters := make(map[int][]int)
	imgToFaceIdxs := make(map[string][]int)
	for i, label := range labels {
		if label == -1 {
			continue
		}
		clusters[label] = append(clusters[label], i)
		imgToFaceIdxs[recs[i].Image] = append(imgToFaceIdxs[recs[i].Image], i)
	}
	if len(clusters) == 0 {
		return nil, ErrNoStableClusters
	}

	imgToPersons := make(map[string][]int, len(imgToFaceIdxs))
	for img, idxs := range imgToFaceIdxs {
		set := make(map[int]bool)
		for _, i := range idxs {
			set[labels[i]] = true
		}
		persons := make([]int, 0, len(set))
		for l := range set {
			persons = append(persons, l)
		}
		sort.Ints(persons)
		imgToPersons[img] = persons
	}

	var singleImages, groupImages []string
	for img, persons := range imgToPersons {
		if len(persons) == 1 {
			singleImages = append(singleImages, img)
		} else {
			groupImages = append(groupImages, img)
		}
	}
	sort.Strings(singleImages)
	sort.Strings(groupImages)

	established := make(map[int]bool)
	for _, img := range singleImages {
		established[imgToPersons[img][0]] = true
	}
	if len(established) == 0 {
		for label, idxs := range clusters {
			if len(idxs) >= 2 {
				established[label] = true
			}
		}
		if len(established) == 0 {
			return nil, ErrNoStableClusters
		}
	}

	// Person ids follow ascending label order, making the mapping
	// reproducible for a fixed labeling.
	sortedLabels := make([]int, 0, len(established))
	for label := range established {
		sortedLabels = append(sortedLabels, label)
	}
	sort.Ints(sortedLabels)
	labelToPID := make(map[int]string, len(sortedLabels))
	for i, label := range sortedLabels {
		labelToPID[label] = fmt.Sprintf("person_%03d", i+1)
	}

	embs := make([][]float32, len(recs))
	for i := range recs {
		embs[i] = recs[i].Embedding
	}
	centroids := cluster.Centroids(embs, labels)

	movedPathOfImage := make(map[string]string)
	var rows []LedgerRow
	moved := 0

	// Singles first: the move establishes where the file lives.
	for _, img := range singleImages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label := imgToPersons[img][0]
		if !established[label] {
			continue
		}
		pid := labelToPID[label]
		rec := recs[firstRecordOfLabel(imgToFaceIdxs[img], labels, label)]

		dest, err := atomicMove(img, filepath.Join(e.outDir, pid), SafeFileName(filepath.Base(img)))
		if err != nil {
			return nil, err
		}
		movedPathOfImage[img] = dest
		moved++

		e.writeThumb(thumbsDir, pid, dest, rec)
		rows = append(rows, LedgerRow{
			PersonID:         pid,
			ImageSrc:         img,
			DestPath:         dest,
			FaceIndex:        rec.FaceIndex,
			BBox:             rec.BBox,
			DetScore:         rec.DetScore,
			CosineToCentroid: facematch.Cosine(rec.Embedding, centroids[label]),
			CanonicalOwner:   pid,
		})
	}

	// Group images: move once to the canonical owner, link for the rest.
	for _, img := range groupImages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var persons []int
		for _, label := range imgToPersons[img] {
			if established[label] {
				persons = append(persons, label)
			}
		}
		if len(persons) == 0 {
			continue
		}
		sort.Slice(persons, func(i, j int) bool {
			return labelToPID[persons[i]] < labelToPID[persons[j]]
		})
		ownerPID := labelToPID[persons[0]]

		dest, alreadyMoved := movedPathOfImage[img]
		if !alreadyMoved {
			var err error
			dest, err = atomicMove(img, filepath.Join(e.outDir, ownerPID), SafeFileName(filepath.Base(img)))
			if err != nil {
				return nil, err
			}
			movedPathOfImage[img] = dest
			moved++
		}

		for _, label := range persons {
			pid := labelToPID[label]
			personDir := filepath.Join(e.outDir, pid)
			if err := os.MkdirAll(personDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", personDir, err)
			}
			rec := recs[firstRecordOfLabel(imgToFaceIdxs[img], labels, label)]

			if pid != ownerPID {
				// Link failure leaves the photo reachable only from
				// the owner's folder; bytes are never duplicated.
				linkFile(dest, filepath.Join(personDir, filepath.Base(dest)))
			}

			e.writeThumb(thumbsDir, pid, dest, rec)
			rows = append(rows, LedgerRow{
				PersonID:         pid,
				ImageSrc:         img,
				DestPath:         dest,
				FaceIndex:        rec.FaceIndex,
				BBox:             rec.BBox,
				DetScore:         rec.DetScore,
				CosineToCentroid: facematch.Cosine(rec.Embedding, centroids[label]),
				CanonicalOwner:   ownerPID,
			})
		}
	}

	if err := writeLedger(filepath.Join(e.outDir, "mapping.csv"), rows); err != nil {
		return nil, err
	}

	return &Summary{
		OK:     true,
		Groups: len(sortedLabels),
		Moved:  moved,
		Out:    e.outDir,
	}, nil
}

// writeThumb crops the face region of the moved file into thumbs/. Thumbnail
// failures never fail the run.
func (e *Exporter) writeThumb(thumbsDir, pid, dest string, rec facematch.FaceRecord) {
	img, err := imaging.Load(dest)
	if err != nil {
		return
	}
	data, err := imaging.Thumbnail(img, rec.BBox, e.thumbSize)
	if err != nil {
		return
	}
	base := filepath.Base(dest)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	name := fmt.Sprintf("%s__%s__f%d.jpg", pid, stem, rec.FaceIndex)
	_ = os.WriteFile(filepath.Join(thumbsDir, name), data, 0o644)
}

// firstRecordOfLabel picks the first record index of an image carrying the
// given label. Existence is guaranteed by construction of imgToFaceIdxs.
func firstRecordOfLabel(idxs []int, labels []int, label int) int {
	for _, i := range idxs {
		if labels[i] == label {
			return i
		}
	}
	return idxs[0]
}
