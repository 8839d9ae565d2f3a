package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/habitsim/internal/models"
	"github.com/samber/lo"
)

func parseJSON(content []byte) ([]models.Habit, error) {
	trimmed := bytes.TrimSpace(content)
	var list models.HabitList
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &list.Habits); err != nil {
			return nil, fmt.Errorf("parse habits: %w", err)
		}
	default:
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("parse habits: %w", err)
		}
	}
	if err := list.Validate(); err != nil {
		return nil, fmt.Errorf("invalid habits: %w", err)
	}
	if list.Habits == nil {
		return []models.Habit{}, nil
	}
	return list.Habits, nil
}

// WriteJSON writes habits as an indented {"habits": [...]} document without timestamps.
func WriteJSON(w io.Writer, habits []models.Habit) error {
	records := lo.Map(habits, func(h models.Habit, _ int) models.Habit { return h.Record() })
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(models.HabitList{Habits: records}); err != nil {
		return fmt.Errorf("encode habits: %w", err)
	}
	return nil
}
