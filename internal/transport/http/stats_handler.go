package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

type submitStatsRequest struct {
	Username string  `json:"username" validate:"required"`
	Topic    string  `json:"topic" validate:"required"`
	Correct  float64 `json:"correct" validate:"gte=0"`
	AvgTime  float64 `json:"avgTime" validate:"gte=0"`
	Retries  float64 `json:"retries" validate:"gte=0"`
}

type submitStatsResponse struct {
	Message    string `json:"message"`
	Difficulty string `json:"difficulty"`
}

// StatsHandler exposes per-topic performance records and adaptive difficulty.
type StatsHandler struct {
	stats    *app.StatsService
	validate *validator.Validate
	log      *slog.Logger
}

func NewStatsHandler(stats *app.StatsService, log *slog.Logger) *StatsHandler {
	if log == nil {
		log = slog.Default()
	}
	return &StatsHandler{
		stats:    stats,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With("component", "stats_api"),
	}
}

func (h *StatsHandler) Routes(r chi.Router) {
	r.Post("/submit", h.submit)
	r.Get("/{username}", h.history)
}

func (h *StatsHandler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitStatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sample := domain.PerformanceSample{Correct: req.Correct, AvgTime: req.AvgTime, Retries: req.Retries}
	difficulty, err := h.stats.Submit(r.Context(), req.Username, req.Topic, sample)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, submitStatsResponse{Message: "Quiz updated!", Difficulty: difficulty})
	case errors.Is(err, domain.ErrPrediction):
		writeError(w, http.StatusInternalServerError, "Prediction service failed")
	default:
		h.log.ErrorContext(r.Context(), "submit stats failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

func (h *StatsHandler) history(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	stats, err := h.stats.History(r.Context(), username)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, stats)
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	default:
		h.log.ErrorContext(r.Context(), "load stats failed", "username", username, "error", err)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}
