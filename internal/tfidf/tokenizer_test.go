package tfidf

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"punctuation and digits", "Walk 10,000 Steps!", []string{"walk", "10", "000", "steps"}},
		{"apostrophe kept", "Don't skip breakfast", []string{"don't", "skip", "breakfast"}},
		{"mixed case", "MORNING run", []string{"morning", "run"}},
		{"empty", "", []string{}},
		{"whitespace only", "  \t\n ", []string{}},
		{"symbols only", "!!! --- ???", []string{}},
		{"non-ascii letters split", "café au lait", []string{"caf", "au", "lait"}},
		{"underscore separates", "deep_work", []string{"deep", "work"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestTokenize_deterministic(t *testing.T) {
	text := "Read 20 pages, then read again"
	first := Tokenize(text)
	for i := 0; i < 10; i++ {
		if got := Tokenize(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %q, want %q", i, got, first)
		}
	}
}

func TestCountTokens(t *testing.T) {
	got := CountTokens([]string{"run", "fast", "run"})
	want := map[string]int{"run": 2, "fast": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CountTokens = %v, want %v", got, want)
	}
}
