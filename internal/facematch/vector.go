package facematch

import "math"

// Cosine computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity
}

// CosineDistance computes the cosine distance between two vectors.
// Returns a value between 0 (identical) and 2 (opposite).
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0 // Maximum distance for invalid input
	}
	return 1 - Cosine(a, b)
}

// L2Normalize returns a unit-norm copy of the vector, or nil when the
// vector is degenerate (empty, non-finite, or near-zero norm). Degenerate
// embeddings must be treated as absent.
func L2Normalize(v []float32) []float32 {
	if len(v) == 0 {
		return nil
	}

	var norm float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		norm += f * f
	}
	norm = math.Sqrt(norm)
	if norm < 1e-12 {
		return nil
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Norm returns the Euclidean norm of a vector.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// MeanNormalized computes the unit-norm mean of a set of vectors.
// Returns nil when the input is empty or the mean is degenerate.
func MeanNormalized(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := range v {
			sum[i] += float64(v[i])
		}
	}

	mean := make([]float32, dim)
	n := float64(len(vectors))
	for i := range sum {
		mean[i] = float32(sum[i] / n)
	}
	return L2Normalize(mean)
}
