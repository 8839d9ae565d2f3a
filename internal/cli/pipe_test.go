package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/habitsim/internal/model"
	"github.com/hyperjump/habitsim/internal/recommend"
	"go.uber.org/zap"
)

func newPipe(t *testing.T) (*Pipe, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "models", "habit_tfidf.json")
	svc := recommend.NewService(model.NewStore(path), recommend.WithLogger(zap.NewNop()))
	return NewPipe(svc, zap.NewNop()), path
}

func run(t *testing.T, p *Pipe, input string, train bool) map[string]interface{} {
	t.Helper()
	var out bytes.Buffer
	if err := p.Run(context.Background(), strings.NewReader(input), &out, train); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n := strings.Count(strings.TrimSpace(out.String()), "\n"); n != 0 {
		t.Errorf("expected one JSON line, got %q", out.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &body); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	return body
}

const runHabits = `{"habits":[
	{"id":"a","name":"Morning Run"},
	{"id":"b","name":"Evening Run"},
	{"id":"c","name":"Read Book"}
], "targetHabitId":"a", "topN":5}`

func TestPipe_recommendsSharedToken(t *testing.T) {
	p, _ := newPipe(t)
	body := run(t, p, runHabits, false)
	recs, ok := body["recommendations"].([]interface{})
	if !ok {
		t.Fatalf("missing recommendations: %v", body)
	}
	if len(recs) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(recs))
	}
	first := recs[0].(map[string]interface{})
	if first["id"] != "b" || first["name"] != "Evening Run" {
		t.Errorf("first = %v", first)
	}
	if v, ok := first["description"]; !ok || v != nil {
		t.Errorf("description should be null, got %v", v)
	}
	if score := first["score"].(float64); score <= 0 || score > 1 {
		t.Errorf("score = %v", score)
	}
}

func TestPipe_ignoresExtraHabitFields(t *testing.T) {
	p, _ := newPipe(t)
	body := run(t, p, `{"habits":[
		{"id":"a","name":"Morning Run","createdAt":"2024-01-01 10:00:00","userId":7},
		{"id":"b","name":"Evening Run","updatedAt":null}
	],"targetHabitId":"a"}`, false)
	recs, ok := body["recommendations"].([]interface{})
	if !ok || len(recs) != 1 {
		t.Fatalf("body = %v", body)
	}
	if id := recs[0].(map[string]interface{})["id"]; id != "b" {
		t.Errorf("first id = %v, want b", id)
	}
}

func TestPipe_zeroStringTopN(t *testing.T) {
	p, _ := newPipe(t)
	input := strings.Replace(runHabits, `"topN":5`, `"topN":"0"`, 1)
	var out bytes.Buffer
	if err := p.Run(context.Background(), strings.NewReader(input), &out, false); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != `{"recommendations":[]}` {
		t.Errorf("got %s", got)
	}
}

func TestPipe_emptyHabits(t *testing.T) {
	p, _ := newPipe(t)
	var out bytes.Buffer
	if err := p.Run(context.Background(), strings.NewReader(`{"habits":[],"targetHabitId":"x"}`), &out, false); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != `{"recommendations":[]}` {
		t.Errorf("got %s", got)
	}
}

func TestPipe_errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		train bool
		want  string
	}{
		{"not json", "not json", false, "Invalid input"},
		{"empty stdin", "", false, "Invalid input"},
		{"array body", `[1,2]`, false, "Invalid input"},
		{"habit without id", `{"habits":[{"name":"x"}],"targetHabitId":"x"}`, false, "Invalid input"},
		{"bad topN", `{"habits":[],"targetHabitId":"x","topN":"many"}`, false, "Invalid input"},
		{"missing target", `{"habits":[{"id":"a"}]}`, false, "Missing targetHabitId"},
		{"null target", `{"habits":[],"targetHabitId":null}`, false, "Missing targetHabitId"},
		{"train not json", "{", true, "Invalid input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPipe(t)
			body := run(t, p, tt.input, tt.train)
			if body["error"] != tt.want {
				t.Errorf("error = %v, want %q", body["error"], tt.want)
			}
		})
	}
}

func TestPipe_train(t *testing.T) {
	p, path := newPipe(t)
	body := run(t, p, runHabits, true)
	if body["status"] != "ok" || body["saved"] != path || body["habitCount"] != float64(3) {
		t.Fatalf("train body = %v", body)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var file struct {
		Vectors map[string]map[string]float64 `json:"vectors"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		t.Fatal(err)
	}
	if len(file.Vectors) != 3 {
		t.Errorf("model has %d vectors, want 3", len(file.Vectors))
	}

	// Training does not need a target.
	body = run(t, p, `{"habits":[{"id":"z","name":"Swim"}]}`, true)
	if body["habitCount"] != float64(1) {
		t.Errorf("retrain body = %v", body)
	}
}

func TestPipe_trainSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	svc := recommend.NewService(model.NewStore(filepath.Join(blocker, "m.json")))
	body := run(t, NewPipe(svc, nil), runHabits, true)
	if body["error"] != "Failed to save model" {
		t.Errorf("body = %v", body)
	}
}

func TestPipe_usesTrainedModel(t *testing.T) {
	p, _ := newPipe(t)
	run(t, p, runHabits, true)

	body := run(t, p, `{"habits":[{"id":"a","name":"Morning Run"}],"targetHabitId":"a"}`, false)
	recs := body["recommendations"].([]interface{})
	if len(recs) != 1 {
		t.Fatalf("got %v", recs)
	}
	first := recs[0].(map[string]interface{})
	if first["id"] != "b" || first["name"] != nil {
		t.Errorf("model-only habit should have null name: %v", first)
	}
}
