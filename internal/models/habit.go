// Package models defines habit records and the recommender's request and response shapes.
package models

import (
	"strings"
	"time"
)

// Habit is one habit record. Name and Description are optional; nil means absent.
type Habit struct {
	ID          string    `json:"id" validate:"required"`
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
	UpdatedAt   time.Time `json:"updatedAt,omitzero"`
}

// Text returns the text the recommender vectorizes: name and description joined by a space.
func (h *Habit) Text() string {
	return strings.TrimSpace(Deref(h.Name) + " " + Deref(h.Description))
}

// Record returns a copy of h without timestamps, the shape exchanged with the recommender.
func (h *Habit) Record() Habit {
	return Habit{ID: h.ID, Name: h.Name, Description: h.Description}
}

// HabitList is the {"habits": [...]} envelope used by requests, exports and imports.
type HabitList struct {
	Habits []Habit `json:"habits" validate:"dive"`
}

// Validate checks that every habit carries an id.
func (l *HabitList) Validate() error {
	return validate.Struct(l)
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns *s, or "" when s is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
