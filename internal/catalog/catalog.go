// Package catalog answers natural-language tool discovery queries by
// delegating to the upstream backend.
package catalog

import (
	"context"
	"strings"

	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/proxyerr"
	"github.com/voxhub/toolproxy/internal/upstream"
)

// Searcher is the subset of the upstream client the catalog needs.
type Searcher interface {
	SearchTools(ctx context.Context, req upstream.SearchRequest) ([]domain.ToolDescriptor, error)
	CreatePlan(ctx context.Context, req upstream.PlanRequest) (*upstream.Plan, error)
}

// Client validates discovery queries and forwards them upstream. An empty
// result list is a legitimate answer, not an error.
type Client struct {
	searcher Searcher
}

// NewClient creates a catalog client.
func NewClient(searcher Searcher) *Client {
	return &Client{searcher: searcher}
}

// Search looks up tools matching the described task. Known field values
// travel with the query so the backend can bias ranking and pre-fill
// argument schemas.
func (c *Client) Search(ctx context.Context, task string, knownFields map[string]string, sessionID string) ([]domain.ToolDescriptor, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, proxyerr.New(proxyerr.KindInvalidRequest, "task description is required")
	}
	return c.searcher.SearchTools(ctx, upstream.SearchRequest{
		UseCase:     task,
		KnownFields: knownFields,
		SessionID:   sessionID,
	})
}

// Plan asks the backend for an ordered tool sequence covering the task.
// The returned steps can be fed straight into workflow execution.
func (c *Client) Plan(ctx context.Context, task string, knownFields map[string]string, primarySlugs []string, sessionID string) ([]domain.WorkflowStep, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, proxyerr.New(proxyerr.KindInvalidRequest, "task description is required")
	}
	plan, err := c.searcher.CreatePlan(ctx, upstream.PlanRequest{
		UseCase:         task,
		KnownFields:     knownFields,
		PrimaryToolSlug: primarySlugs,
		SessionID:       sessionID,
	})
	if err != nil {
		return nil, err
	}

	steps := make([]domain.WorkflowStep, 0, len(plan.Steps))
	for _, planned := range plan.Steps {
		steps = append(steps, domain.WorkflowStep{
			ToolSlug:  planned.ToolSlug,
			Toolkit:   planned.Toolkit,
			Arguments: planned.Arguments,
		})
	}
	return steps, nil
}
