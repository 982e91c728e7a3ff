package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/voxhub/toolproxy/internal/metrics"
)

type sessionResponse struct {
	SessionID        string   `json:"session_id"`
	CreatedAt        int64    `json:"created_at"`
	LastTouchedAt    int64    `json:"last_touched_at"`
	RemainingSeconds int64    `json:"remaining_seconds"`
	Discovered       []string `json:"discovered_tools"`
}

// GetSession returns one session's record, including its discovery log.
// Reading a session counts as activity and refreshes its TTL.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.sessions.Touch(r.Context(), id)
	if err != nil {
		metrics.ObserveRequest("session_get", "error")
		WriteError(w, err)
		return
	}

	discovered := sess.Discovered
	if discovered == nil {
		discovered = []string{}
	}
	metrics.ObserveRequest("session_get", "ok")
	JSON(w, http.StatusOK, sessionResponse{
		SessionID:        sess.ID,
		CreatedAt:        sess.CreatedAt.Unix(),
		LastTouchedAt:    sess.LastTouchedAt.Unix(),
		RemainingSeconds: int64(sess.RemainingTTL(h.sessions.TTL(), time.Now()).Seconds()),
		Discovered:       discovered,
	})
}

// RegisterSessionRoutes registers session inspection routes.
func (h *Handler) RegisterSessionRoutes(r chi.Router) {
	r.Get("/api/sessions/{id}", h.GetSession)
}
