package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/habitsim/internal/models"
	"github.com/hyperjump/habitsim/internal/recommend"
	"github.com/hyperjump/habitsim/internal/search"
	"github.com/hyperjump/habitsim/internal/storage"
	"github.com/hyperjump/habitsim/pkg/utils"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// parseLimit reads a leading integer like parseInt does ("3abc" is 3). Anything
// without one yields def.
func parseLimit(raw string, def int) int {
	m := leadingInt.FindString(strings.TrimSpace(raw))
	if m == "" {
		return def
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) handleHabitRecommend(w http.ResponseWriter, r *http.Request) {
	habitID := r.URL.Query().Get("habitId")
	if habitID == "" {
		s.respondError(w, http.StatusBadRequest, "habitId query param is required")
		return
	}
	topN := parseLimit(r.URL.Query().Get("limit"), s.config.Model.DefaultTopN)
	if topN == 0 {
		topN = s.config.Model.DefaultTopN
	}

	habits, err := s.storage.ListHabits(r.Context(), 0, 0)
	if err != nil {
		s.logger.Error("list habits failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	records := lo.Map(habits, func(h models.Habit, _ int) models.Habit { return h.Record() })
	s.logger.Debug("recommend request",
		zap.String("habitId", habitID),
		zap.Int("limit", topN),
		zap.Int("habits", len(records)),
	)
	resp, err := s.svc.Respond(&models.RecommendRequest{
		Habits:        records,
		TargetHabitID: habitID,
		TopN:          topN,
	}, s.currentModel())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	req, err := models.DecodeRequest(r.Body)
	if err != nil {
		s.logger.Debug("invalid recommend body", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, models.MsgInvalidInput)
		return
	}
	resp, err := s.svc.Respond(req, s.currentModel())
	switch {
	case errors.Is(err, recommend.ErrMissingTarget):
		s.respondError(w, http.StatusBadRequest, models.MsgMissingTarget)
		return
	case err != nil:
		s.respondError(w, http.StatusBadRequest, models.MsgInvalidInput)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	habits, err := s.storage.ListHabits(r.Context(), 0, 0)
	if err != nil {
		s.logger.Error("list habits failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp, err := s.svc.Train(r.Context(), habits)
	if err != nil {
		s.logger.Error("training failed", zap.Error(err))
		trainRunsTotal.WithLabelValues("error").Inc()
		s.respondError(w, http.StatusInternalServerError, models.MsgSaveFailed)
		return
	}
	trainRunsTotal.WithLabelValues("ok").Inc()
	s.ReloadModel()
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset := parseLimit(q.Get("offset"), 0)
	limit := parseLimit(q.Get("limit"), 0)
	habits, err := s.storage.ListHabits(r.Context(), offset, limit)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.HabitList{Habits: habits})
}

type habitInput struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var in habitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	ctx := r.Context()
	if _, err := s.storage.GetHabit(ctx, in.ID); err == nil {
		s.respondError(w, http.StatusConflict, "habit already exists")
		return
	}
	h := &models.Habit{ID: in.ID, Name: in.Name, Description: in.Description}
	if err := s.storage.CreateHabit(ctx, h); err != nil {
		s.logger.Error("create habit failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.indexHabit(r, *h)
	s.logger.Debug("habit created", zap.String("id", h.ID))
	s.respondJSON(w, http.StatusCreated, h)
}

func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	h, err := s.storage.GetHabit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, h)
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	var in habitInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "id")
	if in.ID != "" && in.ID != id {
		s.respondError(w, http.StatusBadRequest, "id in body does not match path")
		return
	}
	ctx := r.Context()
	h := &models.Habit{ID: id, Name: in.Name, Description: in.Description}
	if err := s.storage.UpdateHabit(ctx, h); err != nil {
		s.respondStorageError(w, err)
		return
	}
	updated, err := s.storage.GetHabit(ctx, id)
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.indexHabit(r, *updated)
	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteHabit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete habit request", zap.String("id", id))
	if err := s.storage.DeleteHabit(r.Context(), id); err != nil {
		s.respondStorageError(w, err)
		return
	}
	if s.index != nil {
		if err := s.index.Delete(r.Context(), id); err != nil {
			s.logger.Warn("habit index delete failed", zap.String("id", id), zap.Error(err))
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSearchHabits(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		s.respondError(w, http.StatusNotImplemented, "search not enabled")
		return
	}
	q := r.URL.Query()
	query := q.Get("q")
	if strings.TrimSpace(query) == "" {
		s.respondError(w, http.StatusBadRequest, "q query param is required")
		return
	}
	limit := utils.ClampInt(parseLimit(q.Get("limit"), s.config.Search.DefaultLimit), 1, s.config.Search.MaxLimit)

	results, err := s.search.Search(r.Context(), search.Query{
		Text:  query,
		Limit: limit,
		Fuzzy: q.Get("fuzzy") == "true",
	})
	if err != nil {
		s.logger.Error("habit search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.SearchResponse{Query: query, Results: results})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.svc.Status(r.Context(), s.storage, s.config.Storage.DatabasePath)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) indexHabit(r *http.Request, h models.Habit) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(r.Context(), h); err != nil {
		s.logger.Warn("habit index update failed", zap.String("id", h.ID), zap.Error(err))
	}
}

func (s *Server) respondStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "habit not found")
		return
	}
	s.logger.Error("storage error", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}
