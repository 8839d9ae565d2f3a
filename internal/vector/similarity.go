// Package vector ranks sparse TF-IDF vectors by cosine similarity.
package vector

import (
	"maps"
	"math"
	"slices"

	"github.com/hyperjump/habitsim/internal/tfidf"
)

// Cosine returns the cosine similarity of a and b. It is 0 when either vector is
// empty or has a zero norm. The dot product only visits terms present in both.
// Sums run in term order so equal inputs always give bit-identical scores.
func Cosine(a, b tfidf.Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	normA := L2Norm(a)
	normB := L2Norm(b)
	if normA == 0 || normB == 0 {
		return 0
	}
	return Dot(a, b) / (normA * normB)
}

// Dot returns the inner product of two sparse vectors.
func Dot(a, b tfidf.Vector) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	var dot float64
	for _, term := range slices.Sorted(maps.Keys(small)) {
		if other, ok := large[term]; ok {
			dot += small[term] * other
		}
	}
	return dot
}

// L2Norm returns the L2 norm over every entry of x.
func L2Norm(x tfidf.Vector) float64 {
	var sum float64
	for _, term := range slices.Sorted(maps.Keys(x)) {
		sum += x[term] * x[term]
	}
	return math.Sqrt(sum)
}
