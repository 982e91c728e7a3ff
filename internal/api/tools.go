package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/metrics"
)

type searchRequest struct {
	Task        string            `json:"task"`
	KnownFields map[string]string `json:"known_fields,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
}

type searchResponse struct {
	SessionID         string                  `json:"session_id"`
	SessionTTLSeconds int64                   `json:"session_ttl_seconds"`
	Tools             []domain.ToolDescriptor `json:"tools"`
}

// SearchTools answers a natural-language discovery query. A request without
// a session id starts a new discovery session; with one, it must name a live
// session, which the call refreshes.
func (h *Handler) SearchTools(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decode(r, &req); err != nil {
		metrics.ObserveRequest("search", "invalid")
		WriteError(w, err)
		return
	}

	ctx := r.Context()
	var sess *domain.Session
	var err error
	if req.SessionID != "" {
		sess, err = h.sessions.Touch(ctx, req.SessionID)
	} else {
		sess, err = h.sessions.Create(ctx)
		if err == nil {
			metrics.ObserveSessionCreated()
		}
	}
	if err != nil {
		metrics.ObserveRequest("search", "error")
		WriteError(w, err)
		return
	}

	tools, err := h.catalog.Search(ctx, req.Task, req.KnownFields, sess.ID)
	if err != nil {
		metrics.ObserveRequest("search", "error")
		WriteError(w, err)
		return
	}

	slugs := make([]string, 0, len(tools))
	for _, tool := range tools {
		slugs = append(slugs, tool.Slug)
	}
	// The discovery log is diagnostic; a write failure must not fail the search.
	if err := h.sessions.RecordDiscovery(ctx, sess.ID, slugs); err != nil {
		slog.Warn("Failed to record discovered tools", "session_id", sess.ID, "error", err)
	}

	metrics.ObserveRequest("search", "ok")
	if tools == nil {
		tools = []domain.ToolDescriptor{}
	}
	JSON(w, http.StatusOK, searchResponse{
		SessionID:         sess.ID,
		SessionTTLSeconds: int64(h.sessions.TTL().Seconds()),
		Tools:             tools,
	})
}

type planRequest struct {
	Task             string            `json:"task"`
	KnownFields      map[string]string `json:"known_fields,omitempty"`
	PrimaryToolSlugs []string          `json:"primary_tool_slugs,omitempty"`
	SessionID        string            `json:"session_id,omitempty"`
}

type planResponse struct {
	SessionID string                `json:"session_id,omitempty"`
	Steps     []domain.WorkflowStep `json:"steps"`
}

// CreatePlan asks the backend to plan an ordered tool sequence for a task.
// The returned steps are ready to submit for execution.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decode(r, &req); err != nil {
		metrics.ObserveRequest("plan", "invalid")
		WriteError(w, err)
		return
	}

	ctx := r.Context()
	if req.SessionID != "" {
		if _, err := h.sessions.Touch(ctx, req.SessionID); err != nil {
			metrics.ObserveRequest("plan", "error")
			WriteError(w, err)
			return
		}
	}

	steps, err := h.catalog.Plan(ctx, req.Task, req.KnownFields, req.PrimaryToolSlugs, req.SessionID)
	if err != nil {
		metrics.ObserveRequest("plan", "error")
		WriteError(w, err)
		return
	}

	metrics.ObserveRequest("plan", "ok")
	JSON(w, http.StatusOK, planResponse{SessionID: req.SessionID, Steps: steps})
}

// RegisterToolRoutes registers discovery and planning routes.
func (h *Handler) RegisterToolRoutes(r chi.Router) {
	r.Post("/api/tools/search", h.SearchTools)
	r.Post("/api/plans", h.CreatePlan)
}
