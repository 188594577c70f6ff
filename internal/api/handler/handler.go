// Package handler provides HTTP handlers for the cron trigger and health
// endpoints. The trigger handlers run one dispatch job synchronously and
// report its summary; logical completion is 200 even when some sends failed.
package handler

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tuntasinaja/notify/internal/api/respond"
	"github.com/tuntasinaja/notify/internal/config"
	"github.com/tuntasinaja/notify/internal/dispatch"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	orch *dispatch.Orchestrator
	pool *pgxpool.Pool
	cfg  *config.Config
}

// New creates a Handler with shared dependencies.
func New(orch *dispatch.Orchestrator, pool *pgxpool.Pool, cfg *config.Config) *Handler {
	return &Handler{orch: orch, pool: pool, cfg: cfg}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Tuntasin Notify",
		"version": "1.0.0",
		"status":  "running",
		"jobs": []string{
			"deadline-reminder",
			"schedule-reminder",
			"personal-reminder",
		},
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
