package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/habitsim/internal/config"
	"github.com/hyperjump/habitsim/internal/keyword"
	"github.com/hyperjump/habitsim/internal/models"
	"github.com/hyperjump/habitsim/internal/recommend"
	"github.com/hyperjump/habitsim/internal/tfidf"
	"github.com/hyperjump/habitsim/internal/vector"
	"golang.org/x/sync/errgroup"
)

// queryID names the query document while it is vectorized next to the stored habits.
const queryID = "\x00query"

// HabitLister lists stored habits.
type HabitLister interface {
	ListHabits(ctx context.Context, offset, limit int) ([]models.Habit, error)
}

// Query is one habit search request.
type Query struct {
	Text  string
	Limit int
	Fuzzy bool
}

// Engine runs hybrid (keyword + TF-IDF) habit search.
type Engine struct {
	habits HabitLister
	index  keyword.HabitIndex
	config *config.SearchConfig
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(habits HabitLister, index keyword.HabitIndex, cfg *config.SearchConfig) *Engine {
	return &Engine{habits: habits, index: index, config: cfg}
}

// Search ranks stored habits against q.Text. Keyword and similarity lookups run
// concurrently; habits scoring zero on both are omitted.
func (e *Engine) Search(ctx context.Context, q Query) ([]models.Recommendation, error) {
	if strings.TrimSpace(q.Text) == "" || q.Limit <= 0 {
		return []models.Recommendation{}, nil
	}
	candidates := q.Limit * 2

	var (
		hits   []keyword.Hit
		stored []models.Habit
	)
	g, gctx := errgroup.WithContext(ctx)
	if e.config.KeywordWeight > 0 {
		g.Go(func() error {
			res, err := e.index.Search(gctx, q.Text, candidates, &keyword.SearchOptions{FuzzyEnabled: q.Fuzzy})
			if err != nil {
				return fmt.Errorf("keyword search failed: %w", err)
			}
			hits = res
			return nil
		})
	}
	g.Go(func() error {
		res, err := e.habits.ListHabits(gctx, 0, 0)
		if err != nil {
			return fmt.Errorf("list habits: %w", err)
		}
		stored = res
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var semantic []vector.Scored
	if e.config.SemanticWeight > 0 {
		semantic = similar(q.Text, stored, candidates)
	}

	fused := Fuse(NormalizeKeywordScores(hits), NormalizeSemanticScores(semantic),
		e.config.KeywordWeight, e.config.SemanticWeight)
	out := make([]vector.Scored, 0, q.Limit)
	for _, s := range fused {
		if len(out) == q.Limit {
			break
		}
		if s.Score > 0 {
			out = append(out, s)
		}
	}
	return recommend.Enrich(stored, out), nil
}

// similar scores habits by cosine similarity to text, with IDF computed over the
// habits plus the query.
func similar(text string, habits []models.Habit, topN int) []vector.Scored {
	docs := append(recommend.Documents(habits), tfidf.Document{ID: queryID, Text: text})
	corpus := tfidf.Vectorize(docs)
	target, _ := corpus.Get(queryID)
	return vector.Rank(target, corpus, queryID, topN)
}
