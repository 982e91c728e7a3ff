package domain

import "encoding/json"

// WorkflowStep is one planned tool invocation. Steps are ordered; later steps
// depend on earlier ones having succeeded (sequential dependency is declared
// by the caller, not inferred).
type WorkflowStep struct {
	ToolSlug  string                 `json:"tool_slug"`
	Toolkit   string                 `json:"toolkit,omitempty"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// TargetToolkit returns the application a step executes against, deriving it
// from the slug when not set explicitly.
func (s WorkflowStep) TargetToolkit() string {
	if s.Toolkit != "" {
		return s.Toolkit
	}
	return ToolkitFromSlug(s.ToolSlug)
}

// StepStatus is the outcome of a single workflow step.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// FailureReason classifies why a step failed.
type FailureReason string

const (
	ReasonNotConnected        FailureReason = "not_connected"
	ReasonTimeout             FailureReason = "timeout"
	ReasonUpstreamUnavailable FailureReason = "upstream_unavailable"
	ReasonUpstreamError       FailureReason = "upstream_error"
	ReasonInternal            FailureReason = "internal_error"
)

// StepResult is the per-step outcome of a workflow execution.
type StepResult struct {
	ToolSlug string          `json:"tool_slug"`
	Toolkit  string          `json:"toolkit"`
	Status   StepStatus      `json:"status"`
	Reason   FailureReason   `json:"reason,omitempty"`
	Error    string          `json:"error,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
}

// WorkflowResult aggregates per-step outcomes. Succeeded is true iff every
// step reached StepSucceeded; steps after the first non-success are always
// StepSkipped and never attempted.
type WorkflowResult struct {
	SessionID string       `json:"session_id,omitempty"`
	Succeeded bool         `json:"succeeded"`
	Steps     []StepResult `json:"steps"`
}

// SkippedCount returns the number of steps that were never attempted.
func (r *WorkflowResult) SkippedCount() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StepSkipped {
			n++
		}
	}
	return n
}
