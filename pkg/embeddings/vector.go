// Package embeddings provides pure vector math over embedding vectors
// (cosine similarity, weighted blending, centroids and L2 normalization).
package embeddings

import (
	"math"
)

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// It returns 0 when the lengths differ, either vector is empty, or either has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Rounding can push identical vectors just past 1.
	return math.Max(-1, math.Min(1, sim))
}

// Blend returns old*oldWeight + new*newWeight elementwise. It returns nil when the lengths differ.
func Blend(old, next []float32, oldWeight, newWeight float64) []float32 {
	if len(old) != len(next) {
		return nil
	}

	out := make([]float32, len(old))
	for i := range old {
		out[i] = float32(float64(old[i])*oldWeight + float64(next[i])*newWeight)
	}

	return out
}

// Centroid divides sum by count elementwise. ok is false when count <= 0;
// callers treat that as "no centroid" rather than dividing.
func Centroid(sum []float32, count int64) (centroid []float32, ok bool) {
	if count <= 0 {
		return nil, false
	}

	out := make([]float32, len(sum))
	for i := range sum {
		out[i] = float32(float64(sum[i]) / float64(count))
	}

	return out, true
}

// Scale returns v multiplied by factor.
func Scale(v []float32, factor float64) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(float64(v[i]) * factor)
	}

	return out
}

// IsZero reports whether every component of v is zero (or v is empty).
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}

	return true
}

// NormalizeL2 scales vector to unit length in place. Zero vectors are left unchanged.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}
