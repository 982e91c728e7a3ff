package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// DBPinger checks database liveness.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// UpstreamPinger checks backend liveness.
type UpstreamPinger interface {
	Health(ctx context.Context) error
}

// HealthHandler reports component-level health. The endpoint stays 200 as
// long as the proxy itself is up; degraded components are reported in the
// body so a probe can distinguish "down" from "degraded".
type HealthHandler struct {
	db       DBPinger
	upstream UpstreamPinger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(db DBPinger, upstream UpstreamPinger) *HealthHandler {
	return &HealthHandler{db: db, upstream: upstream}
}

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Health reports proxy, database and upstream status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	components := map[string]string{"api": "ok"}
	status := "ok"

	if err := h.db.Ping(ctx); err != nil {
		components["database"] = err.Error()
		status = "degraded"
	} else {
		components["database"] = "ok"
	}

	if err := h.upstream.Health(ctx); err != nil {
		components["upstream"] = err.Error()
		status = "degraded"
	} else {
		components["upstream"] = "ok"
	}

	JSON(w, http.StatusOK, healthResponse{Status: status, Components: components})
}

// RegisterHealth registers the health route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/api/health", h.Health)
}
