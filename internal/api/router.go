package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/gradecalc/internal/catalog"
	"github.com/MikeSquared-Agency/gradecalc/internal/config"
	"github.com/MikeSquared-Agency/gradecalc/internal/events"
	"github.com/MikeSquared-Agency/gradecalc/internal/session"
)

func NewRouter(s session.Store, cat *catalog.Live, pub *events.Publisher, m *Metrics, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimitPerMinute))

	calc := newCalculator(s, cat, pub, m, logger)
	pages := NewPageHandler(calc)
	sessions := NewSessionsHandler(calc)

	r.Get("/", pages.Index)
	r.Post("/sessions/{id}", pages.Submit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))

		r.Get("/catalog", sessions.Catalog)
		r.Post("/compute", sessions.Compute)

		r.Post("/sessions", sessions.Create)
		r.Get("/sessions/{id}", sessions.Get)
		r.Put("/sessions/{id}/entries", sessions.SetEntry)
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
