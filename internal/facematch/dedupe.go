package facematch

import "sort"

// DedupeIoUCosine collapses duplicate detections of the same physical face.
//
// Candidates are sorted by descending score; each still-unused candidate
// seeds a group, and any other unused candidate joins it when its box IoU
// with the seed reaches iouThr OR its cosine distance to the seed's
// embedding is at most cosThr (union on geometric or embedding evidence).
// Each group collapses to a score-weighted average box, the maximum score,
// and the renormalized mean embedding.
//
// The result is idempotent: running the function on its own output yields
// the same set.
func DedupeIoUCosine(candidates []Candidate, iouThr, cosThr float64) []Candidate {
	if len(candidates) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	used := make([]bool, len(sorted))
	var groups [][]int
	for i := range sorted {
		if used[i] {
			continue
		}
		group := []int{i}
		used[i] = true
		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			iou := ComputeIoU(sorted[i].BBox, sorted[j].BBox)
			cosd := CosineDistance(sorted[i].Embedding, sorted[j].Embedding)
			if iou >= iouThr || cosd <= cosThr {
				group = append(group, j)
				used[j] = true
			}
		}
		groups = append(groups, group)
	}

	out := make([]Candidate, 0, len(groups))
	for _, group := range groups {
		boxes := make([][]float64, len(group))
		weights := make([]float64, len(group))
		embeddings := make([][]float32, len(group))
		maxScore := 0.0
		for k, idx := range group {
			boxes[k] = sorted[idx].BBox
			weights[k] = sorted[idx].Score
			embeddings[k] = sorted[idx].Embedding
			if sorted[idx].Score > maxScore {
				maxScore = sorted[idx].Score
			}
		}

		out = append(out, Candidate{
			BBox:      WeightedAverageBBox(boxes, weights),
			Score:     maxScore,
			Embedding: MeanNormalized(embeddings),
		})
	}
	return out
}
