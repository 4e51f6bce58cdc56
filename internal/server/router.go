package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the API routes and middleware.
func NewRouter(h *Handler, corsOrigins []string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(LoggingMiddleware(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(corsOrigins)) // global so OPTIONS preflight is answered
	r.Use(PrometheusMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/health/ready", h.Ready)
		r.Get("/stats", h.Stats)

		r.Post("/recommend", h.Recommend)
		r.Get("/history/{userId}", h.History)
		r.Get("/recommendations/{userId}", h.RecommendationsForUser)
		r.Get("/recommendation/{id}", h.Recommendation)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
