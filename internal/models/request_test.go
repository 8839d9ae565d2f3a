package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantTarget string
		wantTopN   int
		wantHabits int
	}{
		{"full request", `{"habits":[{"id":"a","name":"Run"}],"targetHabitId":"a","topN":3}`, false, "a", 3, 1},
		{"default topN", `{"habits":[],"targetHabitId":"x"}`, false, "x", DefaultTopN, 0},
		{"zero topN means default", `{"targetHabitId":"x","topN":0}`, false, "x", DefaultTopN, 0},
		{"null topN", `{"targetHabitId":"x","topN":null}`, false, "x", DefaultTopN, 0},
		{"float topN truncated", `{"targetHabitId":"x","topN":2.9}`, false, "x", 2, 0},
		{"string topN", `{"targetHabitId":"x","topN":"7"}`, false, "x", 7, 0},
		{"empty string topN", `{"targetHabitId":"x","topN":""}`, false, "x", DefaultTopN, 0},
		{"blank string topN", `{"targetHabitId":"x","topN":"  "}`, true, "", 0, 0},
		{"padded string topN", `{"targetHabitId":"x","topN":" 4 "}`, false, "x", 4, 0},
		{"zero string topN kept", `{"targetHabitId":"x","topN":"0"}`, false, "x", 0, 0},
		{"fraction topN truncates to zero", `{"targetHabitId":"x","topN":0.5}`, false, "x", 0, 0},
		{"false topN", `{"targetHabitId":"x","topN":false}`, false, "x", DefaultTopN, 0},
		{"empty object topN", `{"targetHabitId":"x","topN":{}}`, false, "x", DefaultTopN, 0},
		{"empty array topN", `{"targetHabitId":"x","topN":[]}`, false, "x", DefaultTopN, 0},
		{"negative topN kept", `{"targetHabitId":"x","topN":-2}`, false, "x", -2, 0},
		{"true topN", `{"targetHabitId":"x","topN":true}`, false, "x", 1, 0},
		{"null habits", `{"habits":null,"targetHabitId":"x"}`, false, "x", DefaultTopN, 0},
		{"extra habit fields ignored", `{"habits":[{"id":"a","name":"Morning Run","createdAt":"2024-01-01 10:00:00","userId":7},{"id":"b","updatedAt":5}],"targetHabitId":"a"}`, false, "a", DefaultTopN, 2},
		{"missing target", `{"habits":[{"id":"a"}]}`, false, "", DefaultTopN, 1},
		{"null target", `{"targetHabitId":null}`, false, "", DefaultTopN, 0},
		{"not json", `not json`, true, "", 0, 0},
		{"empty body", ``, true, "", 0, 0},
		{"json null", `null`, true, "", 0, 0},
		{"json array", `[]`, true, "", 0, 0},
		{"habits not a list", `{"habits":{"id":"a"},"targetHabitId":"a"}`, true, "", 0, 0},
		{"habit without id", `{"habits":[{"name":"Run"}],"targetHabitId":"a"}`, true, "", 0, 0},
		{"habit with numeric id", `{"habits":[{"id":3}],"targetHabitId":"a"}`, true, "", 0, 0},
		{"null habit", `{"habits":[null],"targetHabitId":"a"}`, true, "", 0, 0},
		{"bad topN string", `{"targetHabitId":"x","topN":"many"}`, true, "", 0, 0},
		{"topN object", `{"targetHabitId":"x","topN":{"n":2}}`, true, "", 0, 0},
		{"topN array", `{"targetHabitId":"x","topN":[3]}`, true, "", 0, 0},
		{"numeric target", `{"targetHabitId":5}`, true, "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if req.TargetHabitID != tt.wantTarget {
				t.Errorf("target = %q, want %q", req.TargetHabitID, tt.wantTarget)
			}
			if req.TopN != tt.wantTopN {
				t.Errorf("topN = %d, want %d", req.TopN, tt.wantTopN)
			}
			if req.Habits == nil || len(req.Habits) != tt.wantHabits {
				t.Errorf("habits = %v, want %d entries", req.Habits, tt.wantHabits)
			}
		})
	}
}

func TestDecodeRequest_reader(t *testing.T) {
	req, err := DecodeRequest(strings.NewReader(`{"habits":[{"id":"a","description":null}],"targetHabitId":"a"}`))
	if err != nil {
		t.Fatal(err)
	}
	if req.Habits[0].Description != nil {
		t.Errorf("null description should stay nil")
	}
}

func TestParseRequest_keepsHabitFields(t *testing.T) {
	req, err := ParseRequest([]byte(`{"habits":[{"id":"a","name":"Run","description":null,"createdAt":"yesterday"}],"targetHabitId":"a"}`))
	if err != nil {
		t.Fatal(err)
	}
	h := req.Habits[0]
	if h.ID != "a" || Deref(h.Name) != "Run" || h.Description != nil {
		t.Errorf("habit = %+v", h)
	}
	if !h.CreatedAt.IsZero() {
		t.Errorf("createdAt should not be read from a request, got %v", h.CreatedAt)
	}
}

func TestParseTopN_absent(t *testing.T) {
	n, err := ParseTopN(nil)
	if err != nil || n != DefaultTopN {
		t.Errorf("ParseTopN(nil) = %d, %v", n, err)
	}
}

func TestHabit_Text(t *testing.T) {
	tests := []struct {
		name  string
		habit Habit
		want  string
	}{
		{"both", Habit{ID: "1", Name: StringPtr("Morning Run"), Description: StringPtr("5km loop")}, "Morning Run 5km loop"},
		{"name only", Habit{ID: "1", Name: StringPtr("Read")}, "Read"},
		{"description only", Habit{ID: "1", Description: StringPtr("Ten pages")}, "Ten pages"},
		{"neither", Habit{ID: "1"}, ""},
		// A null description adds nothing, not a "none" token.
		{"null description", Habit{ID: "1", Name: StringPtr("Read"), Description: nil}, "Read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.habit.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecommendation_nullDisplayFields(t *testing.T) {
	data, err := json.Marshal(Recommendation{ID: "x", Score: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"x","name":null,"description":null,"score":0.5}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestHabit_RecordDropsTimestamps(t *testing.T) {
	h := Habit{ID: "a", Name: StringPtr("Run")}
	data, err := json.Marshal(h.Record())
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"id":"a","name":"Run","description":null}`; string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestHabitList_Validate(t *testing.T) {
	ok := HabitList{Habits: []Habit{{ID: "a"}, {ID: "b"}}}
	if err := ok.Validate(); err != nil {
		t.Errorf("valid list: %v", err)
	}
	bad := HabitList{Habits: []Habit{{ID: "a"}, {Name: StringPtr("no id")}}}
	if err := bad.Validate(); err == nil {
		t.Error("habit without id should fail validation")
	}
	empty := HabitList{}
	if err := empty.Validate(); err != nil {
		t.Errorf("empty list: %v", err)
	}
}
