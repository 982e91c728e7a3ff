// Package upstream implements the HTTP client for the tool-execution backend.
//
// The backend exposes three primitives the proxy mediates: tool search, tool
// invocation and connection management, plus plan creation and a health probe.
// The proxy adds session correlation, sequential short-circuit semantics and
// authorization gating on top; none of that lives here.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/proxyerr"
)

// Raw connection statuses reported by the backend.
const (
	StateActive    = "ACTIVE"
	StateInitiated = "INITIATED"
	StateInactive  = "INACTIVE"
)

const errCodeUnknownToolkit = "unknown_toolkit"

// Config holds client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client talks to the tool-execution backend over HTTP/JSON.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend client. The configured timeout bounds every
// request unless the caller's context imposes a tighter one.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// SearchRequest is a catalog query for tools matching a described task.
type SearchRequest struct {
	UseCase     string            `json:"use_case"`
	KnownFields map[string]string `json:"known_fields,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
}

type searchResponse struct {
	Tools []domain.ToolDescriptor `json:"tools"`
}

// SearchTools queries the catalog. An empty result is valid and means
// "no match found"; malformed catalog data fails rather than silently
// returning a partial list.
func (c *Client) SearchTools(ctx context.Context, req SearchRequest) ([]domain.ToolDescriptor, error) {
	body, err := c.post(ctx, "/v1/tools/search", req)
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, proxyerr.Wrap(proxyerr.KindCatalog, "malformed catalog response", err)
	}
	for _, tool := range resp.Tools {
		if tool.Slug == "" {
			return nil, proxyerr.New(proxyerr.KindCatalog, "catalog returned a tool without a slug")
		}
	}
	return resp.Tools, nil
}

// InvokeRequest executes a single tool against the backend.
type InvokeRequest struct {
	ToolSlug  string                 `json:"tool_slug"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
	SessionID string                 `json:"session_id,omitempty"`
}

// InvokeResult is the backend's report for one tool invocation.
// Successful=false with a non-empty Error is a business failure
// (e.g. invalid recipient), distinct from transport-level errors.
type InvokeResult struct {
	Successful bool            `json:"successful"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// InvokeTool invokes one tool. Transport failures and timeouts surface as
// errors; business failures come back inside the result.
func (c *Client) InvokeTool(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	body, err := c.post(ctx, "/v1/tools/execute", req)
	if err != nil {
		return nil, err
	}

	var result InvokeResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, proxyerr.Wrap(proxyerr.KindUpstreamRejected, "malformed invocation response", err)
	}
	return &result, nil
}

// ConnectionState is the backend's raw view of one toolkit connection.
type ConnectionState struct {
	Toolkit     string `json:"toolkit"`
	Status      string `json:"status"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

type manageConnectionsRequest struct {
	Toolkits []string `json:"toolkits"`
}

type manageConnectionsResponse struct {
	Connections []ConnectionState `json:"connections"`
}

// ManageConnections queries or initiates authorization flows for the given
// toolkits. An unknown toolkit identifier fails the whole call.
func (c *Client) ManageConnections(ctx context.Context, toolkits []string) ([]ConnectionState, error) {
	body, err := c.post(ctx, "/v1/connections/manage", manageConnectionsRequest{Toolkits: toolkits})
	if err != nil {
		return nil, err
	}

	var resp manageConnectionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, proxyerr.Wrap(proxyerr.KindUpstreamRejected, "malformed connections response", err)
	}
	return resp.Connections, nil
}

// PlanRequest asks the backend to plan an ordered tool sequence for a task.
type PlanRequest struct {
	UseCase         string            `json:"use_case"`
	KnownFields     map[string]string `json:"known_fields,omitempty"`
	PrimaryToolSlug []string          `json:"primary_tool_slugs,omitempty"`
	SessionID       string            `json:"session_id,omitempty"`
}

// PlannedStep is one step of a backend-produced plan.
type PlannedStep struct {
	ToolSlug    string                 `json:"tool_slug"`
	Toolkit     string                 `json:"toolkit,omitempty"`
	Description string                 `json:"description,omitempty"`
	Arguments   map[string]interface{} `json:"arguments,omitempty"`
}

// Plan is an ordered execution plan for a task.
type Plan struct {
	Steps []PlannedStep `json:"steps"`
}

// CreatePlan asks the backend to plan a workflow for the described task.
func (c *Client) CreatePlan(ctx context.Context, req PlanRequest) (*Plan, error) {
	body, err := c.post(ctx, "/v1/plans", req)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal(body, &plan); err != nil {
		return nil, proxyerr.Wrap(proxyerr.KindUpstreamRejected, "malformed plan response", err)
	}
	return &plan, nil
}

// Health probes backend liveness.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return proxyerr.Newf(proxyerr.KindUpstreamUnavailable, "backend health returned %d", resp.StatusCode)
	}
	return nil
}

type errorPayload struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, proxyerr.Wrap(proxyerr.KindUpstreamUnavailable, "read backend response", err)
	}

	switch {
	case resp.StatusCode >= 500:
		c.logger.Warn("Backend returned server error", "path", path, "status", resp.StatusCode)
		return nil, proxyerr.Newf(proxyerr.KindUpstreamUnavailable, "backend returned %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		var ep errorPayload
		_ = json.Unmarshal(body, &ep)
		if ep.Code == errCodeUnknownToolkit {
			return nil, proxyerr.New(proxyerr.KindUnknownApplication, ep.Error)
		}
		msg := ep.Error
		if msg == "" {
			msg = fmt.Sprintf("backend returned %d", resp.StatusCode)
		}
		return nil, proxyerr.New(proxyerr.KindUpstreamRejected, msg)
	}

	return body, nil
}

// transportError classifies a client-side request failure. A deadline hit is
// a timeout the caller may retry; anything else means the backend could not
// be reached at all.
func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return proxyerr.Wrap(proxyerr.KindTimeout, "backend call exceeded deadline", err)
	}
	// net/http wraps context deadline errors from its own Timeout as url.Error
	// with Timeout()=true; treat those the same way.
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return proxyerr.Wrap(proxyerr.KindTimeout, "backend call timed out", err)
	}
	return proxyerr.Wrap(proxyerr.KindUpstreamUnavailable, "backend unreachable", err)
}
