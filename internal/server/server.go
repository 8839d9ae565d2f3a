// Package server provides the HTTP API for habitsim.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/habitsim/internal/config"
	"github.com/hyperjump/habitsim/internal/keyword"
	"github.com/hyperjump/habitsim/internal/model"
	"github.com/hyperjump/habitsim/internal/recommend"
	"github.com/hyperjump/habitsim/internal/search"
	"github.com/hyperjump/habitsim/internal/storage"
	"github.com/hyperjump/habitsim/internal/tfidf"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the HTTP server for the habitsim API. It keeps the trained model in
// memory and shares it across requests.
type Server struct {
	svc     *recommend.Service
	storage storage.Storage
	index   keyword.HabitIndex
	search  *search.Engine
	limiter *RateLimiter
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server

	modelMu sync.RWMutex
	model   model.LoadResult
}

// NewServer creates a server with the given dependencies. index may be nil, in which
// case habit search is disabled.
func NewServer(
	svc *recommend.Service,
	store storage.Storage,
	index keyword.HabitIndex,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:     svc,
		storage: store,
		index:   index,
		config:  cfg,
		logger:  logger,
		model:   model.LoadResult{Status: model.StatusNotFound},
	}
	if index != nil {
		s.search = search.NewEngine(store, index, &cfg.Search)
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	s.server = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(instrument)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware)
		}
		r.Get("/api/habits/recommend", s.handleHabitRecommend)
		r.Route("/api/v1", s.apiRoutes)
	})

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) apiRoutes(r chi.Router) {
	r.Post("/recommend", s.handleRecommend)
	r.Post("/train", s.handleTrain)
	r.Get("/status", s.handleStatus)

	r.Get("/habits", s.handleListHabits)
	r.Post("/habits", s.handleCreateHabit)
	r.Get("/habits/search", s.handleSearchHabits)
	r.Get("/habits/{id}", s.handleGetHabit)
	r.Put("/habits/{id}", s.handleUpdateHabit)
	r.Delete("/habits/{id}", s.handleDeleteHabit)
}

// ReloadModel reads the model file and swaps it in. A missing or corrupt file leaves
// the server ranking from fresh vectors.
func (s *Server) ReloadModel() model.LoadResult {
	res := s.svc.Store().Load()
	s.modelMu.Lock()
	s.model = res
	s.modelMu.Unlock()
	modelReloadsTotal.WithLabelValues(res.Status.String()).Inc()
	if res.Usable() {
		modelVectors.Set(float64(res.Corpus.Len()))
	} else {
		modelVectors.Set(0)
	}
	s.logger.Info("model reloaded",
		zap.String("path", s.svc.Store().Path()),
		zap.String("status", res.Status.String()),
		zap.Int("vectors", res.Corpus.Len()),
	)
	return res
}

// currentModel returns the loaded corpus, or nil when it is unusable.
func (s *Server) currentModel() *tfidf.Corpus {
	s.modelMu.RLock()
	defer s.modelMu.RUnlock()
	if !s.model.Usable() {
		return nil
	}
	return s.model.Corpus
}

// SyncIndex rebuilds the keyword index from storage.
func (s *Server) SyncIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	habits, err := s.storage.ListHabits(ctx, 0, 0)
	if err != nil {
		return err
	}
	if err := s.index.Rebuild(ctx, habits); err != nil {
		return err
	}
	s.logger.Info("habit index rebuilt", zap.Int("habits", len(habits)))
	return nil
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
