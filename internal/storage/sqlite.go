package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/habitsim/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS habits (
		id TEXT PRIMARY KEY,
		name TEXT,
		description TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_habits_created_at ON habits(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// CreateHabit inserts a habit and sets its timestamps.
func (s *SQLiteStorage) CreateHabit(ctx context.Context, h *models.Habit) error {
	now := time.Now().UTC()
	h.CreatedAt = now
	h.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO habits (id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		h.ID, h.Name, h.Description, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert habit %s: %w", h.ID, err)
	}
	return nil
}

// GetHabit returns a habit by ID.
func (s *SQLiteStorage) GetHabit(ctx context.Context, id string) (*models.Habit, error) {
	var h models.Habit
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM habits WHERE id = ?`, id,
	).Scan(&h.ID, &h.Name, &h.Description, &h.CreatedAt, &h.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// UpdateHabit updates the name and description of an existing habit.
func (s *SQLiteStorage) UpdateHabit(ctx context.Context, h *models.Habit) error {
	h.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`UPDATE habits SET name = ?, description = ?, updated_at = ?
		 WHERE id = ?`,
		h.Name, h.Description, h.UpdatedAt, h.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, h.ID)
	}
	return nil
}

// DeleteHabit removes a habit by ID.
func (s *SQLiteStorage) DeleteHabit(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// ListHabits returns habits in insertion order with offset and limit.
func (s *SQLiteStorage) ListHabits(ctx context.Context, offset, limit int) ([]models.Habit, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at
		 FROM habits ORDER BY rowid LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		var h models.Habit
		if err := rows.Scan(&h.ID, &h.Name, &h.Description, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// UpsertHabits inserts habits, replacing name and description of ids that already exist.
// Existing rows keep their position and created_at.
func (s *SQLiteStorage) UpsertHabits(ctx context.Context, habits []models.Habit) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO habits (id, name, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   updated_at = excluded.updated_at`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, h := range habits {
		if _, err := stmt.ExecContext(ctx, h.ID, h.Name, h.Description, now, now); err != nil {
			return 0, fmt.Errorf("failed to upsert habit %s: %w", h.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(habits), nil
}

// CountHabits returns the total number of habits.
func (s *SQLiteStorage) CountHabits(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM habits`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
