// Package indexer imports habit files into storage and the keyword index.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperjump/habitsim/internal/extract"
	"github.com/hyperjump/habitsim/internal/fingerprint"
	"github.com/hyperjump/habitsim/internal/keyword"
	"github.com/hyperjump/habitsim/internal/models"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// SupportedExtensions lists the habit file types ImportDirectory picks up.
var SupportedExtensions = []string{".json", ".xlsx", ".txt"}

// HabitWriter stores habits in bulk.
type HabitWriter interface {
	UpsertHabits(ctx context.Context, habits []models.Habit) (int, error)
}

// Indexer loads habit files and writes them to storage and, when set, the keyword index.
type Indexer struct {
	storage      HabitWriter
	keywordIndex keyword.HabitIndex
	extractor    *extract.Extractor
	logger       *zap.Logger

	mu   sync.Mutex
	seen map[string]string // absolute path -> content fingerprint
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file imported, file skipped, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// NewIndexer creates an indexer. keywordIndex may be nil; extractor may be nil, in which
// case a default extractor is used.
func NewIndexer(store HabitWriter, keywordIndex keyword.HabitIndex, extractor *extract.Extractor, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		storage:      store,
		keywordIndex: keywordIndex,
		extractor:    extractor,
		logger:       zap.NewNop(),
		seen:         make(map[string]string),
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.extractor == nil {
		idx.extractor = extract.NewExtractor(extract.WithLogger(idx.logger))
	}
	return idx
}

// ImportHabits normalizes habits, upserts them and indexes them for keyword lookup.
// Returns the number of habits written.
func (idx *Indexer) ImportHabits(ctx context.Context, habits []models.Habit) (int, error) {
	habits = lo.Map(habits, func(h models.Habit, _ int) models.Habit { return PreprocessHabit(h) })
	n, err := idx.storage.UpsertHabits(ctx, habits)
	if err != nil {
		return 0, fmt.Errorf("failed to store habits: %w", err)
	}
	if idx.keywordIndex != nil {
		for _, h := range habits {
			if err := idx.keywordIndex.Index(ctx, h); err != nil {
				return n, fmt.Errorf("failed to index habit %q: %w", h.ID, err)
			}
		}
	}
	return n, nil
}

// ImportFile loads the habit file at path and imports it. A file whose content is
// unchanged since the last import by this indexer is skipped and reports 0.
func (idx *Indexer) ImportFile(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("not a regular file: %s", absPath)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}

	sum := fingerprint.Bytes(content)
	idx.mu.Lock()
	unchanged := idx.seen[absPath] == sum
	idx.mu.Unlock()
	if unchanged {
		idx.logger.Debug("indexer skipping unchanged file", zap.String("path", absPath))
		return 0, nil
	}

	habits, err := idx.extractor.LoadBytes(content, strings.ToLower(filepath.Ext(absPath)))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", filepath.Base(absPath), err)
	}
	n, err := idx.ImportHabits(ctx, habits)
	if err != nil {
		return n, err
	}

	idx.mu.Lock()
	idx.seen[absPath] = sum
	idx.mu.Unlock()
	idx.logger.Debug("indexer file imported", zap.String("path", absPath), zap.Int("habits", n))
	return n, nil
}

// ImportDirectory walks dir recursively and imports each regular file with a supported
// extension. Returns the number of habits imported and the first error encountered.
func (idx *Indexer) ImportDirectory(ctx context.Context, dir string) (n int, err error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !extensionAllowed(filepath.Ext(path), SupportedExtensions) {
			return nil
		}
		count, importErr := idx.ImportFile(ctx, path)
		if importErr != nil {
			return importErr
		}
		n += count
		return nil
	})
	return n, err
}

// Forget drops the remembered fingerprint for path so the next ImportFile re-reads it.
func (idx *Indexer) Forget(path string) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return
	}
	idx.mu.Lock()
	delete(idx.seen, absPath)
	idx.mu.Unlock()
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
