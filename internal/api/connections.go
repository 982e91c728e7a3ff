package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/identity"
	"github.com/voxhub/toolproxy/internal/metrics"
	"github.com/voxhub/toolproxy/internal/proxyerr"
)

const (
	intentQuery    = "query"
	intentInitiate = "initiate"
)

type manageConnectionsRequest struct {
	Intent   string   `json:"intent"`
	Toolkits []string `json:"toolkits"`
}

type manageConnectionsResponse struct {
	Connections map[string]domain.Connection `json:"connections"`
}

// ManageConnections queries or initiates toolkit authorization for the
// calling identity. Initiating for an already-authorized toolkit is a no-op.
func (h *Handler) ManageConnections(w http.ResponseWriter, r *http.Request) {
	var req manageConnectionsRequest
	if err := decode(r, &req); err != nil {
		metrics.ObserveRequest("connections", "invalid")
		WriteError(w, err)
		return
	}
	if len(req.Toolkits) == 0 {
		metrics.ObserveRequest("connections", "invalid")
		WriteError(w, proxyerr.New(proxyerr.KindInvalidRequest, "at least one toolkit is required"))
		return
	}

	callerID := identity.CallerIDFromContext(r.Context())

	var conns map[string]domain.Connection
	var err error
	switch req.Intent {
	case intentQuery:
		conns, err = h.connections.Query(r.Context(), callerID, req.Toolkits)
	case intentInitiate:
		conns, err = h.connections.Initiate(r.Context(), callerID, req.Toolkits)
	default:
		metrics.ObserveRequest("connections", "invalid")
		WriteError(w, proxyerr.Newf(proxyerr.KindInvalidRequest, "intent must be %q or %q", intentQuery, intentInitiate))
		return
	}
	if err != nil {
		metrics.ObserveRequest("connections", "error")
		WriteError(w, err)
		return
	}

	metrics.ObserveRequest("connections", "ok")
	JSON(w, http.StatusOK, manageConnectionsResponse{Connections: conns})
}

// RegisterConnectionRoutes registers connection management routes.
func (h *Handler) RegisterConnectionRoutes(r chi.Router) {
	r.Post("/api/connections/manage", h.ManageConnections)
}
