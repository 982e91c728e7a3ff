// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/voxhub/toolproxy/internal/domain"
)

// Repository defines the interface for persisting session records.
type Repository interface {
	// InsertSession stores a new session record.
	InsertSession(ctx context.Context, sess *domain.Session) error

	// GetSession retrieves a session by id. Returns (nil, nil) when absent.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// TouchSession updates the last_touched_at timestamp for a session.
	TouchSession(ctx context.Context, id string, touchedAt time.Time) error

	// AppendDiscovery appends tool slugs to the session's discovery log and
	// refreshes last_touched_at.
	AppendDiscovery(ctx context.Context, id string, slugs []string, touchedAt time.Time) error

	// DeleteSession removes a session record.
	DeleteSession(ctx context.Context, id string) error

	// DeleteExpiredSessions removes sessions whose last activity is older than TTL.
	DeleteExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
