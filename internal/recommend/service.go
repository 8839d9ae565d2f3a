// Package recommend assembles habit recommendations from TF-IDF similarity, using a
// stored model when it covers the target and fresh vectors otherwise.
package recommend

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/habitsim/internal/fingerprint"
	"github.com/hyperjump/habitsim/internal/model"
	"github.com/hyperjump/habitsim/internal/models"
	"github.com/hyperjump/habitsim/internal/tfidf"
	"github.com/hyperjump/habitsim/internal/vector"
	"github.com/hyperjump/habitsim/pkg/utils"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var (
	// ErrInvalidInput marks a malformed or structurally invalid request.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingTarget marks an inference request without targetHabitId.
	ErrMissingTarget = errors.New("missing targetHabitId")
)

// Service answers recommendation and training requests.
type Service struct {
	store  *model.Store
	logger *zap.Logger
	cache  *CorpusCache
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache keeps up to capacity fresh corpora so repeated requests over the same
// habits skip vectorization.
func WithCache(capacity int) Option {
	return func(s *Service) {
		if capacity > 0 {
			s.cache = NewCorpusCache(capacity)
		}
	}
}

// NewService creates a service that trains into and loads from store.
func NewService(store *model.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the model store.
func (s *Service) Store() *model.Store {
	return s.store
}

// Documents turns habits into vectorizer input, keeping their order.
func Documents(habits []models.Habit) []tfidf.Document {
	return lo.Map(habits, func(h models.Habit, _ int) tfidf.Document {
		return tfidf.Document{ID: h.ID, Text: h.Text()}
	})
}

// Vectorize builds fresh vectors for habits, through the cache when one is configured.
func (s *Service) Vectorize(habits []models.Habit) *tfidf.Corpus {
	docs := Documents(habits)
	if s.cache == nil {
		return tfidf.Vectorize(docs)
	}
	key := fingerprint.Documents(docs)
	if corpus, ok := s.cache.Get(key); ok {
		s.logger.Debug("corpus cache hit", zap.Int("habits", len(habits)))
		return corpus
	}
	corpus := tfidf.Vectorize(docs)
	s.cache.Set(key, corpus)
	return corpus
}

// Recommend ranks habits similar to targetID using vectors computed from habits.
// An unknown target has an empty vector and therefore yields no recommendations.
func (s *Service) Recommend(habits []models.Habit, targetID string, topN int) []models.Recommendation {
	corpus := s.Vectorize(habits)
	return s.rank(habits, corpus, targetID, topN)
}

// RecommendWithModel ranks against corpus when it is non-empty and contains targetID,
// and falls back to Recommend otherwise. Display fields always come from habits.
func (s *Service) RecommendWithModel(habits []models.Habit, corpus *tfidf.Corpus, targetID string, topN int) []models.Recommendation {
	if corpus.Len() > 0 {
		if _, ok := corpus.Get(targetID); ok {
			s.logger.Debug("ranking against stored model",
				zap.String("target", targetID),
				zap.Int("vectors", corpus.Len()),
			)
			return s.rank(habits, corpus, targetID, topN)
		}
		s.logger.Debug("target not in stored model, vectorizing request", zap.String("target", targetID))
	}
	return s.Recommend(habits, targetID, topN)
}

// Respond answers an inference request against an already loaded model, which may be nil.
func (s *Service) Respond(req *models.RecommendRequest, corpus *tfidf.Corpus) (*models.RecommendResponse, error) {
	if req == nil {
		return nil, ErrInvalidInput
	}
	if req.TargetHabitID == "" {
		return nil, ErrMissingTarget
	}
	recs := s.RecommendWithModel(req.Habits, corpus, req.TargetHabitID, req.TopN)
	return &models.RecommendResponse{Recommendations: recs}, nil
}

// Handle answers an inference request, loading the model from the store first.
// Missing and corrupt models are treated as absent.
func (s *Service) Handle(ctx context.Context, req *models.RecommendRequest) (*models.RecommendResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req != nil && req.TargetHabitID == "" {
		return nil, ErrMissingTarget
	}
	var corpus *tfidf.Corpus
	if s.store != nil {
		if res := s.store.Load(); res.Usable() {
			corpus = res.Corpus
		}
	}
	return s.Respond(req, corpus)
}

// Train vectorizes habits and writes them to the store. HabitCount is the number of
// vectors written, one per distinct id.
func (s *Service) Train(ctx context.Context, habits []models.Habit) (*models.TrainResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, errors.New("no model store configured")
	}
	corpus := tfidf.Vectorize(Documents(habits))
	if err := s.store.Save(corpus); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	s.logger.Info("model trained",
		zap.String("path", s.store.Path()),
		zap.Int("habits", corpus.Len()),
	)
	return &models.TrainResponse{
		Status:     "ok",
		Saved:      s.store.Path(),
		HabitCount: corpus.Len(),
	}, nil
}

func (s *Service) rank(habits []models.Habit, corpus *tfidf.Corpus, targetID string, topN int) []models.Recommendation {
	target, _ := corpus.Get(targetID)
	scored := vector.Rank(target, corpus, targetID, topN)
	return Enrich(habits, scored)
}

// Enrich attaches display fields from habits to scored ids and rounds scores to 4 decimals.
// Ids absent from habits get null name and description.
func Enrich(habits []models.Habit, scored []vector.Scored) []models.Recommendation {
	byID := lo.KeyBy(habits, func(h models.Habit) string { return h.ID })
	out := make([]models.Recommendation, 0, len(scored))
	for _, sc := range scored {
		rec := models.Recommendation{ID: sc.ID, Score: RoundScore(sc.Score)}
		if h, ok := byID[sc.ID]; ok {
			rec.Name = h.Name
			rec.Description = h.Description
		}
		out = append(out, rec)
	}
	return out
}

// RoundScore rounds a similarity score to 4 decimal places.
func RoundScore(score float64) float64 {
	return utils.RoundTo(score, 4)
}
