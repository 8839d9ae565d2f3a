// Package extract reads and writes habit lists in interchange formats.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/habitsim/internal/models"
	"go.uber.org/zap"
)

// Extractor loads habits from files.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the extractor logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load reads the file at path and returns its habits.
// Supported formats are .json ({"habits": [...]} or a bare array), .xlsx (header row
// with id, name and description columns) and .txt (one habit name per line).
func (e *Extractor) Load(path string) ([]models.Habit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	habits, err := e.LoadBytes(content, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	e.logger.Debug("habits loaded", zap.String("path", path), zap.Int("count", len(habits)))
	return habits, nil
}

// LoadBytes parses content according to ext, which includes the leading dot.
func (e *Extractor) LoadBytes(content []byte, ext string) ([]models.Habit, error) {
	switch ext {
	case ".json":
		return parseJSON(content)
	case ".xlsx":
		return parseExcel(content)
	case ".txt", "":
		return parsePlain(content), nil
	default:
		return nil, fmt.Errorf("unsupported habit file type %q", ext)
	}
}

// Write encodes habits to w in the format named by ext (".json" or ".xlsx").
func Write(w io.Writer, habits []models.Habit, ext string) error {
	switch ext {
	case ".json", "":
		return WriteJSON(w, habits)
	case ".xlsx":
		return WriteExcel(w, habits)
	default:
		return fmt.Errorf("unsupported export type %q", ext)
	}
}

// Export writes habits to path, choosing the format from its extension.
func Export(path string, habits []models.Habit) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create export directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := Write(f, habits, strings.ToLower(filepath.Ext(path))); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
