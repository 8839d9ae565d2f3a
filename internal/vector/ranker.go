package vector

import (
	"sort"

	"github.com/hyperjump/habitsim/internal/tfidf"
)

// Scored is a candidate habit with its similarity to the target.
type Scored struct {
	ID    string
	Score float64
}

// Rank scores every candidate except excludeID against target, sorts by score
// descending, keeps the first topN and then drops scores <= 0. Equal scores keep
// the candidates' corpus order. topN <= 0 yields an empty result.
func Rank(target tfidf.Vector, candidates *tfidf.Corpus, excludeID string, topN int) []Scored {
	if topN <= 0 {
		return []Scored{}
	}
	ids := candidates.IDs()
	scores := make([]Scored, 0, len(ids))
	for _, id := range ids {
		if id == excludeID {
			continue
		}
		vec, _ := candidates.Get(id)
		scores = append(scores, Scored{ID: id, Score: Cosine(target, vec)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if topN < len(scores) {
		scores = scores[:topN]
	}
	result := make([]Scored, 0, len(scores))
	for _, s := range scores {
		if s.Score > 0 {
			result = append(result, s)
		}
	}
	return result
}
