package vector

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/hyperjump/habitsim/internal/tfidf"
)

type entry struct {
	id  string
	vec tfidf.Vector
}

func corpusOf(t *testing.T, entries ...entry) *tfidf.Corpus {
	t.Helper()
	c := tfidf.NewCorpus()
	for _, e := range entries {
		c.Set(e.id, e.vec)
	}
	return c
}

func ids(scored []Scored) []string {
	out := make([]string, len(scored))
	for i, s := range scored {
		out[i] = s.ID
	}
	return out
}

func TestRank_ordersByScore(t *testing.T) {
	target := tfidf.Vector{"run": 1, "morning": 1}
	c := corpusOf(t,
		entry{"self", target},
		entry{"weak", tfidf.Vector{"run": 0.1, "evening": 1}},
		entry{"strong", tfidf.Vector{"run": 1, "morning": 0.9}},
		entry{"none", tfidf.Vector{"read": 1}},
	)
	got := Rank(target, c, "self", 10)
	if want := []string{"strong", "weak"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("Rank = %v, want %v", ids(got), want)
	}
}

func TestRank_excludesTarget(t *testing.T) {
	target := tfidf.Vector{"x": 1}
	c := corpusOf(t, entry{"t", target}, entry{"o", target})
	for _, s := range Rank(target, c, "t", 5) {
		if s.ID == "t" {
			t.Error("excluded id returned")
		}
	}
}

func TestRank_truncatesBeforeFiltering(t *testing.T) {
	target := tfidf.Vector{"x": 1}
	c := corpusOf(t,
		entry{"zero1", tfidf.Vector{"y": 1}},
		entry{"zero2", tfidf.Vector{"z": 1}},
		entry{"hit", tfidf.Vector{"x": 1}},
	)
	got := Rank(target, c, "", 1)
	if want := []string{"hit"}; !reflect.DeepEqual(ids(got), want) {
		t.Errorf("Rank topN=1 = %v, want %v", ids(got), want)
	}

	// Only one positive score among the first two after sorting.
	got = Rank(target, c, "", 2)
	if len(got) != 1 {
		t.Errorf("expected fewer than topN results after filtering, got %v", got)
	}
}

func TestRank_topNBounds(t *testing.T) {
	target := tfidf.Vector{"x": 1}
	c := corpusOf(t, entry{"a", target}, entry{"b", target}, entry{"c", target})
	for _, n := range []int{-1, 0} {
		if got := Rank(target, c, "", n); len(got) != 0 {
			t.Errorf("topN=%d returned %v", n, got)
		}
	}
	if got := Rank(target, c, "", 2); len(got) != 2 {
		t.Errorf("topN=2 returned %d results", len(got))
	}
	if got := Rank(target, c, "", 50); len(got) != 3 {
		t.Errorf("topN=50 returned %d results", len(got))
	}
}

func TestRank_tiesKeepCorpusOrder(t *testing.T) {
	target := tfidf.Vector{"x": 1}
	c := corpusOf(t,
		entry{"third", tfidf.Vector{"x": 1}},
		entry{"first", tfidf.Vector{"x": 1}},
		entry{"second", tfidf.Vector{"x": 1}},
	)
	for i := 0; i < 20; i++ {
		got := Rank(target, c, "", 3)
		if want := []string{"third", "first", "second"}; !reflect.DeepEqual(ids(got), want) {
			t.Fatalf("run %d: Rank = %v, want %v", i, ids(got), want)
		}
	}
}

func TestRank_emptyTargetYieldsNothing(t *testing.T) {
	c := corpusOf(t, entry{"a", tfidf.Vector{"x": 1}})
	if got := Rank(tfidf.Vector{}, c, "missing", 5); len(got) != 0 {
		t.Errorf("empty target returned %v", got)
	}
	if got := Rank(tfidf.Vector{"x": 1}, tfidf.NewCorpus(), "", 5); len(got) != 0 {
		t.Errorf("empty corpus returned %v", got)
	}
}

func BenchmarkRank(b *testing.B) {
	corpus := tfidf.NewCorpus()
	for i := 0; i < 1000; i++ {
		vec := tfidf.Vector{"run": float64(i%10) / 10}
		vec[fmt.Sprintf("w%d", i%50)] = 0.5
		vec[fmt.Sprintf("x%d", i%13)] = 0.25
		corpus.Set(fmt.Sprintf("h%d", i), vec)
	}
	target, _ := corpus.Get("h1")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Rank(target, corpus, "h1", 10)
	}
}
