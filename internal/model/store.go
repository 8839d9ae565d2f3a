// Package model persists TF-IDF corpora as {"vectors": {habitId: {term: weight}}} JSON files.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/habitsim/internal/tfidf"
	"go.uber.org/zap"
)

// Status describes how a Load went.
type Status int

const (
	// StatusLoaded means the file was parsed; malformed entries may have been dropped.
	StatusLoaded Status = iota
	// StatusNotFound means there is no file at the path.
	StatusNotFound
	// StatusCorrupt means the file exists but could not be read or is not a model.
	StatusCorrupt
)

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusNotFound:
		return "not_found"
	case StatusCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// LoadResult is the outcome of Store.Load. Corpus is never nil.
type LoadResult struct {
	Status  Status
	Corpus  *tfidf.Corpus
	Dropped int   // entries skipped because they were not term -> number objects
	Err     error // set for StatusCorrupt
}

// Usable reports whether the result holds a non-empty model worth ranking against.
// Not-found, corrupt and empty models are all "no model" to callers.
func (r LoadResult) Usable() bool {
	return r.Status == StatusLoaded && r.Corpus.Len() > 0
}

// persisted is the on-disk shape.
type persisted struct {
	Vectors *tfidf.Corpus `json:"vectors"`
}

// Store reads and writes one model file.
type Store struct {
	path   string
	logger *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for load diagnostics.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore returns a store for the model file at path.
func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{path: path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the model file path.
func (s *Store) Path() string {
	return s.path
}

// Save writes corpus to the model file, creating parent directories and overwriting
// any existing file. The write is not atomic.
func (s *Store) Save(corpus *tfidf.Corpus) error {
	if corpus == nil {
		corpus = tfidf.NewCorpus()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	data, err := json.Marshal(persisted{Vectors: corpus})
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write model file: %w", err)
	}
	s.logger.Debug("model saved", zap.String("path", s.path), zap.Int("vectors", corpus.Len()))
	return nil
}

// Load reads the model file. It never fails: a missing file gives StatusNotFound and
// an unreadable or malformed one gives StatusCorrupt, both with an empty corpus.
// Entries that are not term -> number objects are dropped and counted.
func (s *Store) Load() LoadResult {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("model not found", zap.String("path", s.path))
			return LoadResult{Status: StatusNotFound, Corpus: tfidf.NewCorpus()}
		}
		return s.corrupt(fmt.Errorf("read model file: %w", err))
	}
	result, err := Decode(data)
	if err != nil {
		return s.corrupt(err)
	}
	if result.Dropped > 0 {
		s.logger.Warn("model entries dropped",
			zap.String("path", s.path),
			zap.Int("dropped", result.Dropped),
			zap.Int("kept", result.Corpus.Len()),
		)
	}
	return result
}

func (s *Store) corrupt(err error) LoadResult {
	s.logger.Warn("model unusable, falling back to fresh vectors", zap.String("path", s.path), zap.Error(err))
	return LoadResult{Status: StatusCorrupt, Corpus: tfidf.NewCorpus(), Err: err}
}

// Decode parses model file contents. It returns an error when data is not a JSON object
// or its "vectors" field is missing or not an object.
func Decode(data []byte) (LoadResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return LoadResult{}, fmt.Errorf("parse model: %w", err)
	}
	if top == nil {
		return LoadResult{}, fmt.Errorf("parse model: not an object")
	}
	raw, ok := top["vectors"]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return LoadResult{}, fmt.Errorf("parse model: vectors is not an object")
	}
	corpus, dropped, err := tfidf.ParseCorpus(raw)
	if err != nil {
		return LoadResult{}, fmt.Errorf("parse model vectors: %w", err)
	}
	return LoadResult{Status: StatusLoaded, Corpus: corpus, Dropped: dropped}, nil
}
