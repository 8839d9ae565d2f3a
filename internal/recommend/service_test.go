package recommend

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hyperjump/habitsim/internal/model"
	"github.com/hyperjump/habitsim/internal/models"
	"github.com/hyperjump/habitsim/internal/tfidf"
	"github.com/hyperjump/habitsim/internal/vector"
	"go.uber.org/zap"
)

func habit(id, name, desc string) models.Habit {
	h := models.Habit{ID: id}
	if name != "" {
		h.Name = models.StringPtr(name)
	}
	if desc != "" {
		h.Description = models.StringPtr(desc)
	}
	return h
}

func runHabits() []models.Habit {
	return []models.Habit{
		habit("a", "Morning Run", ""),
		habit("b", "Evening Run", ""),
		habit("c", "Read Book", ""),
	}
}

func recIDs(recs []models.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	store := model.NewStore(filepath.Join(t.TempDir(), "models", "habit_tfidf.json"))
	return NewService(store, append([]Option{WithLogger(zap.NewNop())}, opts...)...)
}

func TestRecommend_sharedTokenRanksFirst(t *testing.T) {
	svc := newTestService(t)
	recs := svc.Recommend(runHabits(), "a", 5)
	if len(recs) == 0 || recs[0].ID != "b" {
		t.Fatalf("expected b first, got %v", recIDs(recs))
	}
	for _, r := range recs {
		if r.ID == "a" {
			t.Error("target returned")
		}
		if r.ID == "c" {
			t.Error("c shares no token with a and must be filtered")
		}
	}
	if recs[0].Name == nil || *recs[0].Name != "Evening Run" {
		t.Errorf("name not enriched: %+v", recs[0])
	}
	if recs[0].Description != nil {
		t.Errorf("absent description should stay null, got %q", *recs[0].Description)
	}
}

func TestRecommend_scoreRounded(t *testing.T) {
	svc := newTestService(t)
	recs := svc.Recommend(runHabits(), "a", 5)
	if len(recs) != 1 {
		t.Fatalf("got %v", recIDs(recs))
	}
	corpus := tfidf.Vectorize(Documents(runHabits()))
	a, _ := corpus.Get("a")
	b, _ := corpus.Get("b")
	want := math.Round(vector.Cosine(a, b)*1e4) / 1e4
	if recs[0].Score != want {
		t.Errorf("score = %v, want %v", recs[0].Score, want)
	}
	if recs[0].Score <= 0 || recs[0].Score >= 1 {
		t.Errorf("score %v out of (0,1)", recs[0].Score)
	}
}

func TestRecommend_emptyAndUnknown(t *testing.T) {
	svc := newTestService(t)
	if recs := svc.Recommend(nil, "x", 5); len(recs) != 0 {
		t.Errorf("empty habits: %v", recIDs(recs))
	}
	if recs := svc.Recommend(runHabits(), "missing", 5); len(recs) != 0 {
		t.Errorf("unknown target: %v", recIDs(recs))
	}
	if recs := svc.Recommend(runHabits(), "a", 0); len(recs) != 0 {
		t.Errorf("topN=0: %v", recIDs(recs))
	}
}

func TestRecommend_topNLimit(t *testing.T) {
	habits := []models.Habit{
		habit("t", "drink water", ""),
		habit("1", "drink water daily", ""),
		habit("2", "water plants", ""),
		habit("3", "drink tea", ""),
		habit("4", "water the garden", ""),
	}
	svc := newTestService(t)
	recs := svc.Recommend(habits, "t", 2)
	if len(recs) != 2 {
		t.Fatalf("got %d results, want 2", len(recs))
	}
	if recs[0].ID != "1" {
		t.Errorf("closest habit should be 1, got %v", recIDs(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Score > recs[i-1].Score {
			t.Errorf("scores not descending: %v", recs)
		}
	}
}

func TestRecommendWithModel_usesModelWhenTargetPresent(t *testing.T) {
	svc := newTestService(t)
	modelCorpus := tfidf.NewCorpus()
	modelCorpus.Set("a", tfidf.Vector{"x": 1})
	modelCorpus.Set("ghost", tfidf.Vector{"x": 1})
	modelCorpus.Set("b", tfidf.Vector{"y": 1})

	recs := svc.RecommendWithModel(runHabits(), modelCorpus, "a", 5)
	if got := recIDs(recs); !reflect.DeepEqual(got, []string{"ghost"}) {
		t.Fatalf("got %v, want [ghost]", got)
	}
	if recs[0].Name != nil || recs[0].Description != nil {
		t.Errorf("id unknown to the request should have null fields: %+v", recs[0])
	}
	if recs[0].Score != 1 {
		t.Errorf("score = %v", recs[0].Score)
	}
}

func TestRecommendWithModel_fallsBack(t *testing.T) {
	svc := newTestService(t)
	stale := tfidf.NewCorpus()
	stale.Set("other", tfidf.Vector{"x": 1})
	for name, corpus := range map[string]*tfidf.Corpus{
		"nil":            nil,
		"empty":          tfidf.NewCorpus(),
		"missing target": stale,
	} {
		t.Run(name, func(t *testing.T) {
			recs := svc.RecommendWithModel(runHabits(), corpus, "a", 5)
			if got := recIDs(recs); !reflect.DeepEqual(got, []string{"b"}) {
				t.Errorf("fallback got %v, want [b]", got)
			}
		})
	}
}

func TestHandle_missingTarget(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Handle(context.Background(), &models.RecommendRequest{Habits: runHabits(), TopN: 5})
	if !errors.Is(err, ErrMissingTarget) {
		t.Errorf("err = %v, want ErrMissingTarget", err)
	}
	if _, err := svc.Respond(nil, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil request err = %v", err)
	}
}

func TestHandle_withoutModel(t *testing.T) {
	svc := newTestService(t)
	resp, err := svc.Handle(context.Background(), &models.RecommendRequest{Habits: runHabits(), TargetHabitID: "a", TopN: 5})
	if err != nil {
		t.Fatal(err)
	}
	if got := recIDs(resp.Recommendations); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("got %v", got)
	}
}

func TestHandle_emptyHabitsGivesEmptyList(t *testing.T) {
	svc := newTestService(t)
	resp, err := svc.Handle(context.Background(), &models.RecommendRequest{Habits: []models.Habit{}, TargetHabitID: "x", TopN: 5})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Recommendations == nil || len(resp.Recommendations) != 0 {
		t.Errorf("want empty non-nil list, got %#v", resp.Recommendations)
	}
}

func TestHandle_corruptModelFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.json")
	if err := os.WriteFile(path, []byte("{broken"), 0600); err != nil {
		t.Fatal(err)
	}
	svc := NewService(model.NewStore(path))
	resp, err := svc.Handle(context.Background(), &models.RecommendRequest{Habits: runHabits(), TargetHabitID: "a", TopN: 5})
	if err != nil {
		t.Fatal(err)
	}
	if got := recIDs(resp.Recommendations); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("got %v", got)
	}
}

func TestTrainThenHandle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	train, err := svc.Train(ctx, runHabits())
	if err != nil {
		t.Fatal(err)
	}
	if train.Status != "ok" || train.HabitCount != 3 || train.Saved != svc.Store().Path() {
		t.Errorf("train response %+v", train)
	}
	res := svc.Store().Load()
	if res.Status != model.StatusLoaded || res.Corpus.Len() != 3 {
		t.Fatalf("stored model: %v, %d vectors", res.Status, res.Corpus.Len())
	}

	// The request only carries the target; the others come from the model.
	resp, err := svc.Handle(ctx, &models.RecommendRequest{
		Habits:        []models.Habit{habit("a", "Morning Run", "")},
		TargetHabitID: "a",
		TopN:          5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := recIDs(resp.Recommendations); !reflect.DeepEqual(got, []string{"b"}) {
		t.Fatalf("got %v", got)
	}
	if resp.Recommendations[0].Name != nil {
		t.Errorf("b is not in the request, name should be null")
	}
}

func TestTrain_countsDistinctIDs(t *testing.T) {
	svc := newTestService(t)
	habits := append(runHabits(), habit("a", "Morning Swim", ""))
	train, err := svc.Train(context.Background(), habits)
	if err != nil {
		t.Fatal(err)
	}
	if train.HabitCount != 3 {
		t.Errorf("HabitCount = %d, want 3", train.HabitCount)
	}
}

func TestTrain_saveError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	svc := NewService(model.NewStore(filepath.Join(blocker, "model.json")))
	if _, err := svc.Train(context.Background(), runHabits()); err == nil {
		t.Error("expected save error when parent is a file")
	}
}

func TestTrain_cancelledContext(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Train(ctx, runHabits()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestVectorize_cache(t *testing.T) {
	svc := newTestService(t, WithCache(4))
	first := svc.Vectorize(runHabits())
	second := svc.Vectorize(runHabits())
	if first != second {
		t.Error("identical habits should reuse the cached corpus")
	}
	changed := svc.Vectorize(append(runHabits(), habit("d", "Run fast", "")))
	if changed == first {
		t.Error("different habits must not hit the cache")
	}
	if svc.cache.Len() != 2 {
		t.Errorf("cache Len = %d, want 2", svc.cache.Len())
	}

	uncached := newTestService(t)
	if uncached.Vectorize(runHabits()) == uncached.Vectorize(runHabits()) {
		t.Error("without a cache every call vectorizes")
	}
}

func TestRoundScore(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.123456, 0.1235},
		{0.99999, 1},
		{0.00004, 0},
		{0.5, 0.5},
	}
	for _, tt := range tests {
		if got := RoundScore(tt.in); got != tt.want {
			t.Errorf("RoundScore(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnrich_lastDuplicateWins(t *testing.T) {
	habits := []models.Habit{habit("x", "First", ""), habit("x", "Second", "")}
	recs := Enrich(habits, []vector.Scored{{ID: "x", Score: 0.5}})
	if recs[0].Name == nil || *recs[0].Name != "Second" {
		t.Errorf("name = %v", recs[0].Name)
	}
}
