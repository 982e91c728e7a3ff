package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/identity"
	"github.com/voxhub/toolproxy/internal/metrics"
)

type executeRequest struct {
	SessionID string                `json:"session_id,omitempty"`
	Steps     []domain.WorkflowStep `json:"steps"`
}

// ExecuteWorkflow runs an ordered tool sequence. The response always reports
// every step: executed ones with their outcome, unexecuted ones as skipped.
func (h *Handler) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decode(r, &req); err != nil {
		metrics.ObserveRequest("execute", "invalid")
		WriteError(w, err)
		return
	}

	callerID := identity.CallerIDFromContext(r.Context())
	result, err := h.workflows.Execute(r.Context(), callerID, req.SessionID, req.Steps)
	if err != nil {
		metrics.ObserveRequest("execute", "error")
		WriteError(w, err)
		return
	}

	outcome := "ok"
	if !result.Succeeded {
		outcome = "failed"
	}
	metrics.ObserveRequest("execute", outcome)
	JSON(w, http.StatusOK, result)
}

// RegisterWorkflowRoutes registers workflow execution routes.
func (h *Handler) RegisterWorkflowRoutes(r chi.Router) {
	r.Post("/api/workflows/execute", h.ExecuteWorkflow)
}
