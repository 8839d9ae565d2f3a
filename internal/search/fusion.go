// Package search combines keyword and TF-IDF similarity scores into one habit ranking.
package search

import (
	"sort"

	"github.com/hyperjump/habitsim/internal/keyword"
	"github.com/hyperjump/habitsim/internal/vector"
)

// NormalizeKeywordScores scales keyword hit scores to [0,1] by the maximum score.
func NormalizeKeywordScores(hits []keyword.Hit) map[string]float64 {
	normalized := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return normalized
	}
	maxScore := hits[0].Score
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	for _, h := range hits {
		if maxScore > 0 {
			normalized[h.ID] = h.Score / maxScore
		} else {
			normalized[h.ID] = 0
		}
	}
	return normalized
}

// NormalizeSemanticScores returns cosine scores keyed by habit ID. They are already in [0,1].
func NormalizeSemanticScores(scored []vector.Scored) map[string]float64 {
	normalized := make(map[string]float64, len(scored))
	for _, s := range scored {
		normalized[s.ID] = s.Score
	}
	return normalized
}

// Fuse merges keyword and semantic score maps with weights. Results are sorted by
// fused score descending, then by ID.
func Fuse(keywordScores, semanticScores map[string]float64, keywordWeight, semanticWeight float64) []vector.Scored {
	ids := make(map[string]struct{}, len(keywordScores)+len(semanticScores))
	for id := range keywordScores {
		ids[id] = struct{}{}
	}
	for id := range semanticScores {
		ids[id] = struct{}{}
	}
	results := make([]vector.Scored, 0, len(ids))
	for id := range ids {
		score := keywordWeight*keywordScores[id] + semanticWeight*semanticScores[id]
		results = append(results, vector.Scored{ID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results
}
