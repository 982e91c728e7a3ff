// Package api provides HTTP handlers for the tool orchestration proxy.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/proxyerr"
)

// SessionService is the session registry surface the handlers need.
type SessionService interface {
	Create(ctx context.Context) (*domain.Session, error)
	Touch(ctx context.Context, id string) (*domain.Session, error)
	Get(ctx context.Context, id string) (*domain.Session, error)
	RecordDiscovery(ctx context.Context, id string, slugs []string) error
	TTL() time.Duration
}

// CatalogService answers discovery and planning queries.
type CatalogService interface {
	Search(ctx context.Context, task string, knownFields map[string]string, sessionID string) ([]domain.ToolDescriptor, error)
	Plan(ctx context.Context, task string, knownFields map[string]string, primarySlugs []string, sessionID string) ([]domain.WorkflowStep, error)
}

// WorkflowService runs workflows.
type WorkflowService interface {
	Execute(ctx context.Context, callerID, sessionID string, steps []domain.WorkflowStep) (*domain.WorkflowResult, error)
}

// ConnectionService queries and initiates toolkit authorization.
type ConnectionService interface {
	Query(ctx context.Context, callerID string, toolkits []string) (map[string]domain.Connection, error)
	Initiate(ctx context.Context, callerID string, toolkits []string) (map[string]domain.Connection, error)
}

// Handler provides common handler utilities and dependencies.
type Handler struct {
	sessions    SessionService
	catalog     CatalogService
	workflows   WorkflowService
	connections ConnectionService
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sessions SessionService, catalog CatalogService, workflows WorkflowService, connections ConnectionService) *Handler {
	return &Handler{
		sessions:    sessions,
		catalog:     catalog,
		workflows:   workflows,
		connections: connections,
	}
}

// RegisterRoutes registers all proxy API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.RegisterToolRoutes(r)
	h.RegisterWorkflowRoutes(r)
	h.RegisterConnectionRoutes(r)
	h.RegisterSessionRoutes(r)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response carrying the error kind so clients can
// branch without parsing messages.
func Error(w http.ResponseWriter, status int, kind proxyerr.Kind, message string) {
	JSON(w, status, map[string]string{
		"error": message,
		"kind":  string(kind),
	})
}

// WriteError maps a service error onto an HTTP response.
func WriteError(w http.ResponseWriter, err error) {
	kind := proxyerr.KindOf(err)
	Error(w, statusFromKind(kind), kind, err.Error())
}

func statusFromKind(kind proxyerr.Kind) int {
	switch kind {
	case proxyerr.KindInvalidRequest:
		return http.StatusBadRequest
	case proxyerr.KindSessionNotFound, proxyerr.KindUnknownApplication:
		return http.StatusNotFound
	case proxyerr.KindNotConnected:
		return http.StatusConflict
	case proxyerr.KindUpstreamUnavailable, proxyerr.KindCatalog:
		return http.StatusBadGateway
	case proxyerr.KindTimeout:
		return http.StatusGatewayTimeout
	case proxyerr.KindUpstreamRejected:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON request body into v.
func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return proxyerr.Wrap(proxyerr.KindInvalidRequest, "malformed JSON body", err)
	}
	return nil
}
