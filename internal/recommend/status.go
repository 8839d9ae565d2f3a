package recommend

import (
	"context"
	"fmt"

	"github.com/hyperjump/habitsim/internal/models"
	"github.com/hyperjump/habitsim/internal/storage"
)

// HabitCounter reports how many habits are stored.
type HabitCounter interface {
	CountHabits(ctx context.Context) (int64, error)
}

// Status reports the model file state and, when db is set, the stored habit count.
// Disk usage covers the model file and the database with its WAL sidecars.
func (s *Service) Status(ctx context.Context, db HabitCounter, dbPath string) (*models.StatusResponse, error) {
	status := &models.StatusResponse{DatabasePath: dbPath}
	if s.store != nil {
		res := s.store.Load()
		status.ModelPath = s.store.Path()
		status.ModelStatus = res.Status.String()
		status.ModelVectors = res.Corpus.Len()
	}
	if db != nil {
		n, err := db.CountHabits(ctx)
		if err != nil {
			return nil, fmt.Errorf("count habits: %w", err)
		}
		status.HabitCount = n
	}
	paths := append([]string{status.ModelPath}, storage.DatabaseFiles(dbPath)...)
	usage, err := storage.DiskUsageBytes(paths...)
	if err != nil {
		return nil, fmt.Errorf("disk usage: %w", err)
	}
	status.DiskUsageBytes = usage
	return status, nil
}
