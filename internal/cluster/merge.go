package cluster

import (
	"sort"

	"github.com/kozaktomas/face-sorter/internal/facematch"
)

// MergeByCentroid unions clusters whose centroids are closer than threshold
// in cosine distance, then renumbers surviving labels densely from 0. Noise
// is never merged. A threshold of zero or fewer than two clusters leaves the
// labels untouched.
func MergeByCentroid(embs [][]float32, labels []int, threshold float64) []int {
	if threshold <= 0 {
		return labels
	}

	centroids := Centroids(embs, labels)
	uniq := make([]int, 0, len(centroids))
	for label := range centroids {
		uniq = append(uniq, label)
	}
	sort.Ints(uniq)
	if len(uniq) <= 1 {
		return labels
	}

	// Union-find over positions in uniq, not over label values, so the
	// parent slice stays flat and dense.
	pos := make(map[int]int, len(uniq))
	for p, label := range uniq {
		pos[label] = p
	}

	uf := newUnionFind(len(uniq))
	for i, a := range uniq {
		for _, b := range uniq[i+1:] {
			if facematch.CosineDistance(centroids[a], centroids[b]) < threshold {
				uf.union(pos[a], pos[b])
			}
		}
	}

	rootToNew := make(map[int]int)
	next := 0
	for _, label := range uniq {
		root := uf.find(pos[label])
		if _, ok := rootToNew[root]; !ok {
			rootToNew[root] = next
			next++
		}
	}

	out := make([]int, len(labels))
	for i, label := range labels {
		if label == -1 {
			out[i] = -1
			continue
		}
		out[i] = rootToNew[uf.find(pos[label])]
	}
	return out
}
