package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultTopN is used when a request leaves topN unset or empty.
const DefaultTopN = 5

var validate = validator.New()

// RecommendRequest is the recommender's input document.
type RecommendRequest struct {
	Habits        []Habit `json:"habits" validate:"dive"`
	TargetHabitID string  `json:"targetHabitId"`
	TopN          int     `json:"topN"`
}

// rawRequest keeps topN and targetHabitId raw so their loose forms can be normalized.
type rawRequest struct {
	Habits        []requestHabit  `json:"habits"`
	TargetHabitID json.RawMessage `json:"targetHabitId"`
	TopN          json.RawMessage `json:"topN"`
}

// DecodeRequest reads one JSON request from r. Absent or null habits become an empty list,
// an absent or null targetHabitId becomes "", and topN is normalized by ParseTopN.
// Every error means the body is malformed or structurally invalid.
func DecodeRequest(r io.Reader) (*RecommendRequest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	return ParseRequest(data)
}

// ParseRequest is DecodeRequest over a byte slice.
func ParseRequest(data []byte) (*RecommendRequest, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("request is not a JSON object")
	}
	var raw rawRequest
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	target, err := parseTarget(raw.TargetHabitID)
	if err != nil {
		return nil, err
	}
	topN, err := ParseTopN(raw.TopN)
	if err != nil {
		return nil, err
	}
	req := &RecommendRequest{
		Habits:        make([]Habit, 0, len(raw.Habits)),
		TargetHabitID: target,
		TopN:          topN,
	}
	for _, h := range raw.Habits {
		req.Habits = append(req.Habits, h.habit())
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

// requestHabit is a habit as it appears in a request. Fields other than id, name and
// description are ignored.
type requestHabit struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h requestHabit) habit() Habit {
	return Habit{ID: h.ID, Name: h.Name, Description: h.Description}
}

func parseTarget(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("targetHabitId must be a string: %w", err)
	}
	return s, nil
}

// ParseTopN normalizes a raw topN value. Only empty values fall back to DefaultTopN:
// absent, null, 0, false, "" and empty arrays or objects. Numbers are truncated toward
// zero and numeric strings are parsed, so "0" and 0.5 both give 0. true counts as 1.
// Anything else is an error.
func ParseTopN(raw json.RawMessage) (int, error) {
	if isNull(raw) {
		return DefaultTopN, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("parse topN: %w", err)
	}
	switch val := v.(type) {
	case float64:
		if val == 0 {
			return DefaultTopN, nil
		}
		return truncate(val), nil
	case bool:
		if !val {
			return DefaultTopN, nil
		}
		return 1, nil
	case string:
		if val == "" {
			return DefaultTopN, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("topN %q is not an integer", val)
		}
		return n, nil
	case []interface{}:
		if len(val) == 0 {
			return DefaultTopN, nil
		}
	case map[string]interface{}:
		if len(val) == 0 {
			return DefaultTopN, nil
		}
	}
	return 0, fmt.Errorf("topN has unsupported type %T", v)
}

func truncate(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
