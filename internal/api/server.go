// Package api wires the chi router for the cron trigger surface. The
// endpoints are POST-only; chi answers anything else with 405.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	corslib "github.com/rs/cors"

	"github.com/tuntasinaja/notify/internal/api/handler"
	"github.com/tuntasinaja/notify/internal/config"
	"github.com/tuntasinaja/notify/internal/dispatch"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(orch *dispatch.Orchestrator, pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(RecoverMiddleware(logger))

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(orch, pool, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// Cron triggers, guarded by the shared bearer secret.
	r.Route("/api/cron", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.CronSecret))
		r.Post("/deadline-reminder", h.DeadlineReminder)
		r.Post("/schedule-reminder", h.ScheduleReminder)
		r.Post("/personal-reminder", h.PersonalReminder)
	})

	return r
}
