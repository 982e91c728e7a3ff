package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voxhub/toolproxy/internal/proxyerr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestSearchTools(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tools/search" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if req.UseCase != "send an email to a@example.com" {
			t.Errorf("Unexpected use_case %q", req.UseCase)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tools": []map[string]interface{}{
				{"tool_slug": "GMAIL_SEND_EMAIL", "toolkit": "gmail", "description": "Send an email via Gmail"},
			},
		})
	})

	tools, err := c.SearchTools(context.Background(), SearchRequest{
		UseCase:     "send an email to a@example.com",
		KnownFields: map[string]string{"email": "a@example.com"},
	})
	if err != nil {
		t.Fatalf("SearchTools failed: %v", err)
	}
	if len(tools) != 1 || tools[0].Slug != "GMAIL_SEND_EMAIL" {
		t.Errorf("Unexpected tools: %+v", tools)
	}
}

func TestSearchToolsEmptyResultIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"tools": []interface{}{}})
	})

	tools, err := c.SearchTools(context.Background(), SearchRequest{UseCase: "teleport to mars"})
	if err != nil {
		t.Fatalf("Expected empty result to succeed, got %v", err)
	}
	if len(tools) != 0 {
		t.Errorf("Expected no tools, got %d", len(tools))
	}
}

func TestSearchToolsMalformedPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tools": "not-a-list"`))
	})

	_, err := c.SearchTools(context.Background(), SearchRequest{UseCase: "send email"})
	if !proxyerr.Is(err, proxyerr.KindCatalog) {
		t.Errorf("Expected catalog_error, got %v", err)
	}
}

func TestSearchToolsRejectsSluglessTool(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"tools": []map[string]interface{}{{"toolkit": "gmail"}},
		})
	})

	_, err := c.SearchTools(context.Background(), SearchRequest{UseCase: "send email"})
	if !proxyerr.Is(err, proxyerr.KindCatalog) {
		t.Errorf("Expected catalog_error for slugless tool, got %v", err)
	}
}

func TestBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.SearchTools(context.Background(), SearchRequest{UseCase: "send email"})
	if !proxyerr.Is(err, proxyerr.KindUpstreamUnavailable) {
		t.Errorf("Expected upstream_unavailable, got %v", err)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.InvokeTool(context.Background(), InvokeRequest{ToolSlug: "GMAIL_SEND_EMAIL"})
	if !proxyerr.Is(err, proxyerr.KindUpstreamUnavailable) {
		t.Errorf("Expected upstream_unavailable, got %v", err)
	}
}

func TestInvokeToolBusinessFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(InvokeResult{Successful: false, Error: "invalid recipient"})
	})

	result, err := c.InvokeTool(context.Background(), InvokeRequest{ToolSlug: "GMAIL_SEND_EMAIL"})
	if err != nil {
		t.Fatalf("InvokeTool failed: %v", err)
	}
	if result.Successful {
		t.Error("Expected unsuccessful result")
	}
	if result.Error != "invalid recipient" {
		t.Errorf("Expected upstream error detail, got %q", result.Error)
	}
}

func TestInvokeToolDeadline(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server detects the client disconnect and
		// cancels the request context; otherwise Close deadlocks in cleanup.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.InvokeTool(ctx, InvokeRequest{ToolSlug: "GMAIL_SEND_EMAIL"})
	if !proxyerr.Is(err, proxyerr.KindTimeout) {
		t.Errorf("Expected timeout, got %v", err)
	}
}

func TestManageConnectionsUnknownToolkit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": `toolkit "frobnicator" is not supported`,
			"code":  "unknown_toolkit",
		})
	})

	_, err := c.ManageConnections(context.Background(), []string{"frobnicator"})
	if !proxyerr.Is(err, proxyerr.KindUnknownApplication) {
		t.Errorf("Expected unknown_application, got %v", err)
	}
}

func TestManageConnections(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req manageConnectionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Toolkits) != 2 {
			t.Errorf("Expected 2 toolkits, got %v", req.Toolkits)
		}
		_ = json.NewEncoder(w).Encode(manageConnectionsResponse{Connections: []ConnectionState{
			{Toolkit: "gmail", Status: StateActive},
			{Toolkit: "slack", Status: StateInitiated, RedirectURL: "https://auth.example.com/slack"},
		}})
	})

	states, err := c.ManageConnections(context.Background(), []string{"gmail", "slack"})
	if err != nil {
		t.Fatalf("ManageConnections failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("Expected 2 states, got %d", len(states))
	}
	if states[1].RedirectURL == "" {
		t.Error("Expected redirect URL for initiated connection")
	}
}

func TestCreatePlan(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Plan{Steps: []PlannedStep{
			{ToolSlug: "GOOGLE_DOCS_CREATE", Toolkit: "googledocs"},
			{ToolSlug: "GMAIL_SEND_EMAIL", Toolkit: "gmail"},
		}})
	})

	plan, err := c.CreatePlan(context.Background(), PlanRequest{UseCase: "draft and send the report"})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if len(plan.Steps) != 2 {
		t.Errorf("Expected 2 planned steps, got %d", len(plan.Steps))
	}
}
