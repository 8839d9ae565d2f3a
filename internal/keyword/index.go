// Package keyword provides keyword lookup over habit names and descriptions.
package keyword

import (
	"context"

	"github.com/hyperjump/habitsim/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// NameBoost multiplies the score contribution from matches in the habit name.
	// Use 1.0 for no boost.
	NameBoost float64
	// FuzzyEnabled enables typo-tolerant matching within Fuzziness edits.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance (1 or 2). Default is 1.
	Fuzziness int
}

// HabitIndex defines keyword search operations over habits.
type HabitIndex interface {
	Index(ctx context.Context, h models.Habit) error
	Rebuild(ctx context.Context, habits []models.Habit) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// Hit is a single keyword search hit.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}
