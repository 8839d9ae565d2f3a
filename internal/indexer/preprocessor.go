package indexer

import (
	"strings"
	"unicode"

	"github.com/hyperjump/habitsim/internal/models"
)

// Preprocess normalizes text for storage (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// PreprocessHabit returns h with its name and description normalized. Absent fields
// stay absent.
func PreprocessHabit(h models.Habit) models.Habit {
	if h.Name != nil {
		h.Name = models.StringPtr(Preprocess(*h.Name))
	}
	if h.Description != nil {
		h.Description = models.StringPtr(Preprocess(*h.Description))
	}
	return h
}
