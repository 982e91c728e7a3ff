// Package connection tracks per-caller toolkit authorization state.
//
// Status is cached in Redis keyed by (caller, toolkit). Authorized entries
// persist; pending entries carry a TTL so an abandoned or cancelled
// authorization flow reverts to unauthorized without bookkeeping.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/proxyerr"
	"github.com/voxhub/toolproxy/internal/upstream"
)

// Authorizer is the subset of the upstream client the manager needs.
type Authorizer interface {
	ManageConnections(ctx context.Context, toolkits []string) ([]upstream.ConnectionState, error)
}

// Manager owns ConnectionStatus records. Only the manager mutates them; the
// workflow executor reads them before invoking a step.
type Manager struct {
	rdb        *redis.Client
	authorizer Authorizer
	pendingTTL time.Duration
}

// NewManager creates a connection manager.
func NewManager(rdb *redis.Client, authorizer Authorizer, pendingTTL time.Duration) *Manager {
	return &Manager{
		rdb:        rdb,
		authorizer: authorizer,
		pendingTTL: pendingTTL,
	}
}

func connKey(callerID, toolkit string) string {
	return "conn:" + callerID + ":" + toolkit
}

// Status returns the cached authorization state for one toolkit. It is a
// pure lookup and never mutates; an unseen toolkit is unauthorized.
func (m *Manager) Status(ctx context.Context, callerID, toolkit string) (domain.ConnectionStatus, error) {
	val, err := m.rdb.Get(ctx, connKey(callerID, toolkit)).Result()
	if err == redis.Nil {
		return domain.ConnectionUnauthorized, nil
	}
	if err != nil {
		return domain.ConnectionUnauthorized, fmt.Errorf("connection status lookup: %w", err)
	}
	switch domain.ConnectionStatus(val) {
	case domain.ConnectionAuthorized:
		return domain.ConnectionAuthorized, nil
	case domain.ConnectionPending:
		return domain.ConnectionPending, nil
	default:
		return domain.ConnectionUnauthorized, nil
	}
}

// Query refreshes the cached state for the given toolkits from the upstream
// backend and returns the per-toolkit view.
func (m *Manager) Query(ctx context.Context, callerID string, toolkits []string) (map[string]domain.Connection, error) {
	states, err := m.authorizer.ManageConnections(ctx, toolkits)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.Connection, len(toolkits))
	for _, state := range states {
		conn, err := m.applyState(ctx, callerID, state)
		if err != nil {
			return nil, err
		}
		out[state.Toolkit] = conn
	}
	// Toolkits the backend did not report stay unauthorized.
	for _, toolkit := range toolkits {
		if _, ok := out[toolkit]; !ok {
			out[toolkit] = domain.Connection{Toolkit: toolkit, Status: domain.ConnectionUnauthorized}
		}
	}
	return out, nil
}

// Initiate starts authorization flows for toolkits that are not yet
// authorized. Already-authorized toolkits are returned unchanged, so calling
// Initiate twice for a connected app is a no-op rather than an error.
func (m *Manager) Initiate(ctx context.Context, callerID string, toolkits []string) (map[string]domain.Connection, error) {
	out := make(map[string]domain.Connection, len(toolkits))
	var needed []string

	for _, toolkit := range toolkits {
		status, err := m.Status(ctx, callerID, toolkit)
		if err != nil {
			return nil, err
		}
		if status == domain.ConnectionAuthorized {
			out[toolkit] = domain.Connection{Toolkit: toolkit, Status: domain.ConnectionAuthorized}
			continue
		}
		needed = append(needed, toolkit)
	}

	if len(needed) == 0 {
		return out, nil
	}

	states, err := m.authorizer.ManageConnections(ctx, needed)
	if err != nil {
		return nil, err
	}
	reported := make(map[string]bool, len(states))
	for _, state := range states {
		conn, err := m.applyState(ctx, callerID, state)
		if err != nil {
			return nil, err
		}
		out[state.Toolkit] = conn
		reported[state.Toolkit] = true
	}
	for _, toolkit := range needed {
		if !reported[toolkit] {
			return nil, proxyerr.Newf(proxyerr.KindUnknownApplication, "toolkit %q not recognized by backend", toolkit)
		}
	}
	return out, nil
}

// applyState writes the backend-reported state into the cache and returns
// the caller-facing view.
func (m *Manager) applyState(ctx context.Context, callerID string, state upstream.ConnectionState) (domain.Connection, error) {
	key := connKey(callerID, state.Toolkit)

	switch state.Status {
	case upstream.StateActive:
		if err := m.rdb.Set(ctx, key, string(domain.ConnectionAuthorized), 0).Err(); err != nil {
			return domain.Connection{}, fmt.Errorf("cache authorized connection: %w", err)
		}
		return domain.Connection{Toolkit: state.Toolkit, Status: domain.ConnectionAuthorized}, nil

	case upstream.StateInitiated:
		if err := m.rdb.Set(ctx, key, string(domain.ConnectionPending), m.pendingTTL).Err(); err != nil {
			return domain.Connection{}, fmt.Errorf("cache pending connection: %w", err)
		}
		return domain.Connection{
			Toolkit:     state.Toolkit,
			Status:      domain.ConnectionPending,
			RedirectURL: state.RedirectURL,
		}, nil

	default:
		if err := m.rdb.Del(ctx, key).Err(); err != nil {
			slog.Warn("Failed to clear connection cache entry", "toolkit", state.Toolkit, "error", err)
		}
		return domain.Connection{Toolkit: state.Toolkit, Status: domain.ConnectionUnauthorized}, nil
	}
}
