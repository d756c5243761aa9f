package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TextGenerator completes a free-form prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type promptResponse struct {
	Response string `json:"response"`
}

// NewProxyRouter serves the prompt relay used by the question generator.
func NewProxyRouter(gen TextGenerator, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "proxy")

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, requestLogger(log), corsPolicy())

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Gemini api server running"))
	})
	r.Post("/gemini", func(w http.ResponseWriter, r *http.Request) {
		var req promptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
			writeError(w, http.StatusBadRequest, "prompt is required")
			return
		}
		text, err := gen.GenerateText(r.Context(), req.Prompt)
		if err != nil {
			log.ErrorContext(r.Context(), "generate content failed", "error", err)
			writeError(w, http.StatusInternalServerError, "Error generating content")
			return
		}
		writeJSON(w, http.StatusOK, promptResponse{Response: text})
	})
	return r
}
