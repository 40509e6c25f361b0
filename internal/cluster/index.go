package cluster

import (
	"github.com/coder/hnsw"
)

const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	hnswMaxNeighbors = 16

	// hnswCandidateK is how many approximate neighbors a graph query
	// returns before exact re-filtering.
	hnswCandidateK = 100
)

// neighborIndex yields candidate neighbor ids for one point. Candidates are
// a superset hint only; callers always recompute exact cosine distances and
// filter themselves.
type neighborIndex interface {
	Candidates(i int) []int
}

// bruteIndex returns every other point, making downstream filtering exact.
type bruteIndex struct {
	n int
}

func (b bruteIndex) Candidates(i int) []int {
	out := make([]int, 0, b.n-1)
	for j := 0; j < b.n; j++ {
		if j != i {
			out = append(out, j)
		}
	}
	return out
}

// hnswIndex narrows candidates with an approximate graph for large inputs.
type hnswIndex struct {
	graph *hnsw.Graph[int]
	embs  [][]float32
}

func newHNSWIndex(embs [][]float32) *hnswIndex {
	g := hnsw.NewGraph[int]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	for i, emb := range embs {
		if len(emb) == 0 {
			continue
		}
		g.Add(hnsw.MakeNode(i, emb))
	}
	return &hnswIndex{graph: g, embs: embs}
}

func (h *hnswIndex) Candidates(i int) []int {
	nodes := h.graph.Search(h.embs[i], hnswCandidateK+1)
	out := make([]int, 0, len(nodes))
	for _, n := range nodes {
		if n.Key != i {
			out = append(out, n.Key)
		}
	}
	return out
}

// newNeighborIndex picks exact brute force for small inputs and the HNSW
// graph above the limit.
func newNeighborIndex(embs [][]float32, bruteForceLimit int) neighborIndex {
	if bruteForceLimit > 0 && len(embs) > bruteForceLimit {
		return newHNSWIndex(embs)
	}
	return bruteIndex{n: len(embs)}
}
