// Package cluster groups unit-length face embeddings into identity labels.
// Labels are dense non-negative integers; -1 marks noise and is never
// exported as a person.
package cluster

import (
	"github.com/kozaktomas/face-sorter/internal/config"
	"github.com/kozaktomas/face-sorter/internal/facematch"
)

// Assign produces one label per embedding using the configured method.
//
// The preferred method is single linkage over mutual-reachability distances;
// it tolerates clusters of very uneven size without a cluster count. When it
// leaves every point in noise, or when the config asks for it, the
// fixed-radius DBSCAN pass runs instead. Embeddings are renormalized
// defensively before any distances are taken.
func Assign(embs [][]float32, cfg config.ClusterConfig) []int {
	if len(embs) == 0 {
		return nil
	}

	normalized := make([][]float32, len(embs))
	for i, e := range embs {
		if n := facematch.L2Normalize(e); n != nil {
			normalized[i] = n
		} else {
			normalized[i] = e
		}
	}

	idx := newNeighborIndex(normalized, cfg.BruteForceLimit)

	if cfg.Method == "dbscan" {
		return dbscan(normalized, idx, cfg.DBSCANEps, cfg.DBSCANMinPoints)
	}

	labels := singleLinkage(normalized, idx, cfg.LinkageCutoff, cfg.MinSamples, cfg.MinClusterSize)
	if allNoise(labels) {
		return dbscan(normalized, idx, cfg.DBSCANEps, cfg.DBSCANMinPoints)
	}
	return labels
}

func allNoise(labels []int) bool {
	for _, l := range labels {
		if l != -1 {
			return false
		}
	}
	return true
}

// ApplyCannotLink enforces that one image never carries the same identity
// twice. For every image, the first record of a label keeps it; later
// records of that image with the same label drop to noise. images runs
// parallel to labels.
func ApplyCannotLink(labels []int, images []string) []int {
	out := make([]int, len(labels))
	copy(out, labels)

	seen := make(map[string]map[int]bool)
	for i, label := range out {
		if label == -1 {
			continue
		}
		img := images[i]
		if seen[img] == nil {
			seen[img] = make(map[int]bool)
		}
		if seen[img][label] {
			out[i] = -1
			continue
		}
		seen[img][label] = true
	}
	return out
}

// Centroids returns the unit-normalized mean embedding per non-noise label.
func Centroids(embs [][]float32, labels []int) map[int][]float32 {
	members := make(map[int][][]float32)
	for i, label := range labels {
		if label == -1 {
			continue
		}
		members[label] = append(members[label], embs[i])
	}

	centroids := make(map[int][]float32, len(members))
	for label, vecs := range members {
		if c := facematch.MeanNormalized(vecs); c != nil {
			centroids[label] = c
		}
	}
	return centroids
}
