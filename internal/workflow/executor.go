// Package workflow executes ordered tool invocations against the upstream
// backend.
//
// Workflows model a pipeline, not an independent batch: execution stops at
// the first step that does not succeed and every later step is marked
// skipped without being attempted. Each step is gated on the target
// application's connection status and bounded by a per-step timeout. Steps
// are never retried inside one call; retry is the caller's decision.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/metrics"
	"github.com/voxhub/toolproxy/internal/proxyerr"
	"github.com/voxhub/toolproxy/internal/upstream"
)

// Invoker is the subset of the upstream client the executor needs.
type Invoker interface {
	InvokeTool(ctx context.Context, req upstream.InvokeRequest) (*upstream.InvokeResult, error)
}

// SessionToucher validates and refreshes a session when a workflow call
// supplies one.
type SessionToucher interface {
	Touch(ctx context.Context, id string) (*domain.Session, error)
}

// ConnectionChecker reports the authorization state of a toolkit for a
// caller. Reads only; the connection manager owns mutation.
type ConnectionChecker interface {
	Status(ctx context.Context, callerID, toolkit string) (domain.ConnectionStatus, error)
}

// StepObserver receives each step result as it is produced, including
// skipped steps. Used to stream progress to observers.
type StepObserver func(sessionID string, result domain.StepResult)

// Executor runs workflows. It holds no state across steps beyond the
// in-flight call's own stack.
type Executor struct {
	invoker     Invoker
	sessions    SessionToucher
	conns       ConnectionChecker
	stepTimeout time.Duration
	observer    StepObserver
}

// NewExecutor creates a workflow executor with the given per-step timeout.
func NewExecutor(invoker Invoker, sessions SessionToucher, conns ConnectionChecker, stepTimeout time.Duration) *Executor {
	return &Executor{
		invoker:     invoker,
		sessions:    sessions,
		conns:       conns,
		stepTimeout: stepTimeout,
	}
}

// SetObserver installs a step observer. Must be called before Execute.
func (e *Executor) SetObserver(fn StepObserver) {
	e.observer = fn
}

// Execute runs the steps in declared order. A supplied session id is touched
// first (and may fail with session_not_found); an absent id runs the
// workflow session-less. The overall Succeeded flag is true iff every step
// reached succeeded.
func (e *Executor) Execute(ctx context.Context, callerID, sessionID string, steps []domain.WorkflowStep) (*domain.WorkflowResult, error) {
	if len(steps) == 0 {
		return nil, proxyerr.New(proxyerr.KindInvalidRequest, "workflow requires at least one step")
	}
	for i, step := range steps {
		if step.ToolSlug == "" {
			return nil, proxyerr.Newf(proxyerr.KindInvalidRequest, "step %d has no tool slug", i)
		}
	}

	if sessionID != "" {
		if _, err := e.sessions.Touch(ctx, sessionID); err != nil {
			return nil, fmt.Errorf("workflow session: %w", err)
		}
	}

	result := &domain.WorkflowResult{
		SessionID: sessionID,
		Steps:     make([]domain.StepResult, 0, len(steps)),
	}

	halted := false
	for _, step := range steps {
		var stepResult domain.StepResult
		if halted {
			stepResult = domain.StepResult{
				ToolSlug: step.ToolSlug,
				Toolkit:  step.TargetToolkit(),
				Status:   domain.StepSkipped,
			}
		} else {
			stepResult = e.runStep(ctx, callerID, sessionID, step)
			if stepResult.Status != domain.StepSucceeded {
				halted = true
			}
		}

		metrics.ObserveStep(string(stepResult.Status))
		if e.observer != nil {
			e.observer(sessionID, stepResult)
		}
		result.Steps = append(result.Steps, stepResult)
	}

	result.Succeeded = !halted
	return result, nil
}

func (e *Executor) runStep(ctx context.Context, callerID, sessionID string, step domain.WorkflowStep) domain.StepResult {
	toolkit := step.TargetToolkit()
	res := domain.StepResult{ToolSlug: step.ToolSlug, Toolkit: toolkit}

	// Gate on authorization before any upstream traffic: partial automation
	// against an unconnected app would fail silently downstream.
	status, err := e.conns.Status(ctx, callerID, toolkit)
	if err != nil {
		res.Status = domain.StepFailed
		res.Reason = domain.ReasonInternal
		res.Error = err.Error()
		return res
	}
	if status != domain.ConnectionAuthorized {
		res.Status = domain.StepFailed
		res.Reason = domain.ReasonNotConnected
		res.Error = fmt.Sprintf("application %q is not connected", toolkit)
		return res
	}

	stepCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	started := time.Now()
	invokeResult, err := e.invoker.InvokeTool(stepCtx, upstream.InvokeRequest{
		ToolSlug:  step.ToolSlug,
		Arguments: step.Arguments,
		SessionID: sessionID,
	})
	metrics.ObserveStepDuration(toolkit, time.Since(started))

	if err != nil {
		res.Status = domain.StepFailed
		res.Error = err.Error()
		switch {
		case stepCtx.Err() != nil && ctx.Err() == nil,
			errors.Is(err, context.DeadlineExceeded),
			proxyerr.Is(err, proxyerr.KindTimeout):
			res.Reason = domain.ReasonTimeout
			res.Error = fmt.Sprintf("tool %q timed out after %s", step.ToolSlug, e.stepTimeout)
		case proxyerr.Is(err, proxyerr.KindUpstreamUnavailable):
			res.Reason = domain.ReasonUpstreamUnavailable
		default:
			res.Reason = domain.ReasonUpstreamError
		}
		slog.Warn("Workflow step failed",
			"tool_slug", step.ToolSlug,
			"toolkit", toolkit,
			"reason", res.Reason,
			"session_id", sessionID)
		return res
	}

	if !invokeResult.Successful {
		res.Status = domain.StepFailed
		res.Reason = domain.ReasonUpstreamError
		res.Error = invokeResult.Error
		return res
	}

	res.Status = domain.StepSucceeded
	res.Output = invokeResult.Data
	return res
}
