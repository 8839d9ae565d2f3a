// Package tfidf turns short habit texts into sparse TF-IDF vectors.
package tfidf

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9']+`)

// Tokenize lowercases text and returns every maximal run of letters a-z, digits and
// apostrophes, left to right. Empty or whitespace-only text yields an empty slice.
func Tokenize(text string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// CountTokens returns the multiset of tokens as term -> occurrences.
func CountTokens(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}
