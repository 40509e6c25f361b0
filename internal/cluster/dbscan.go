package cluster

import (
	"github.com/kozaktomas/face-sorter/internal/facematch"
)

// dbscan assigns density labels over cosine distance. Points whose
// eps-neighborhood (self included) holds fewer than minPts members become
// noise (-1) unless a neighboring core point claims them as border points.
func dbscan(embs [][]float32, idx neighborIndex, eps float64, minPts int) []int {
	n := len(embs)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}
	visited := make([]bool, n)

	within := func(i int) []int {
		var out []int
		for _, j := range idx.Candidates(i) {
			if facematch.CosineDistance(embs[i], embs[j]) <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	next := 0
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := within(i)
		if len(neighbors)+1 < minPts {
			continue // noise, may still be claimed as border point later
		}

		label := next
		next++
		labels[i] = label

		// Expand the cluster breadth-first.
		queue := append([]int(nil), neighbors...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]

			if !visited[j] {
				visited[j] = true
				more := within(j)
				if len(more)+1 >= minPts {
					queue = append(queue, more...)
				}
			}
			if labels[j] == -1 {
				labels[j] = label
			}
		}
	}
	return labels
}
