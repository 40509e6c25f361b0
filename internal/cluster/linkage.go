package cluster

import (
	"math"
	"sort"

	"github.com/kozaktomas/face-sorter/internal/facematch"
)

// singleLinkage clusters over mutual-reachability cosine distance.
//
// The core distance of a point is its distance to the minSamples-th nearest
// neighbor; the mutual-reachability distance of a pair is the maximum of
// both core distances and the raw distance. Points joined by a chain of
// pairs at most cutoff apart form one cluster. Components smaller than
// minClusterSize become noise (-1). Labels are dense, assigned in order of
// first appearance.
func singleLinkage(embs [][]float32, idx neighborIndex, cutoff float64, minSamples, minClusterSize int) []int {
	n := len(embs)
	if n == 0 {
		return nil
	}
	if minSamples < 1 {
		minSamples = 1
	}

	core := coreDistances(embs, idx, minSamples)

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for _, j := range idx.Candidates(i) {
			if j <= i {
				continue
			}
			d := facematch.CosineDistance(embs[i], embs[j])
			reach := math.Max(d, math.Max(core[i], core[j]))
			if reach <= cutoff {
				uf.union(i, j)
			}
		}
	}

	sizes := make(map[int]int, n)
	for i := 0; i < n; i++ {
		sizes[uf.find(i)]++
	}

	labels := make([]int, n)
	rootToLabel := make(map[int]int)
	next := 0
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if sizes[root] < minClusterSize {
			labels[i] = -1
			continue
		}
		label, ok := rootToLabel[root]
		if !ok {
			label = next
			next++
			rootToLabel[root] = label
		}
		labels[i] = label
	}
	return labels
}

// coreDistances computes the distance from every point to its k-th nearest
// neighbor. Points with fewer than k neighbors use their farthest one.
func coreDistances(embs [][]float32, idx neighborIndex, k int) []float64 {
	core := make([]float64, len(embs))
	for i := range embs {
		candidates := idx.Candidates(i)
		if len(candidates) == 0 {
			core[i] = 0
			continue
		}
		dists := make([]float64, 0, len(candidates))
		for _, j := range candidates {
			dists = append(dists, facematch.CosineDistance(embs[i], embs[j]))
		}
		sort.Float64s(dists)
		if k <= len(dists) {
			core[i] = dists[k-1]
		} else {
			core[i] = dists[len(dists)-1]
		}
	}
	return core
}
