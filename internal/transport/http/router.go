package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the quiz websocket, the stats API and the health check.
// stats may be nil when no stats backend is configured.
func NewRouter(ws *WSHandler, stats *StatsHandler, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, requestLogger(log.With("component", "http")), corsPolicy())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/ws", ws.ServeWS)
	if stats != nil {
		r.Route("/quiz", stats.Routes)
	}
	return r
}
