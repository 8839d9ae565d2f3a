// Package storage persists habits.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/habitsim/internal/models"
)

// ErrNotFound is returned when a habit id does not exist.
var ErrNotFound = errors.New("habit not found")

// Storage defines habit persistence operations.
type Storage interface {
	CreateHabit(ctx context.Context, h *models.Habit) error
	GetHabit(ctx context.Context, id string) (*models.Habit, error)
	UpdateHabit(ctx context.Context, h *models.Habit) error
	DeleteHabit(ctx context.Context, id string) error
	// ListHabits returns habits in insertion order. A non-positive limit returns all.
	ListHabits(ctx context.Context, offset, limit int) ([]models.Habit, error)

	// UpsertHabits inserts or replaces habits in one transaction.
	UpsertHabits(ctx context.Context, habits []models.Habit) (int, error)

	CountHabits(ctx context.Context) (int64, error)

	Close() error
}
