// Package session implements the session registry that correlates discovery
// calls with subsequent execution calls.
//
// Expiry is lazy: Touch checks the TTL on access and deletes expired records
// on detection, so the background sweeper only reclaims storage and is never
// load-bearing for correctness. Identifiers are minted from a crypto/rand
// backed UUID so one caller cannot guess another caller's session.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voxhub/toolproxy/internal/domain"
	"github.com/voxhub/toolproxy/internal/proxyerr"
	"github.com/voxhub/toolproxy/internal/store"
)

// Registry owns Session records. Access to any individual record is
// serialized per identifier; calls on different identifiers proceed in
// parallel.
type Registry struct {
	repo store.Repository
	ttl  time.Duration
	now  func() time.Time

	// locks serializes concurrent access per session id.
	locks sync.Map
}

// NewRegistry creates a registry backed by repo with the given inactivity TTL.
func NewRegistry(repo store.Repository, ttl time.Duration) *Registry {
	return &Registry{
		repo: repo,
		ttl:  ttl,
		now:  time.Now,
	}
}

// TTL returns the configured inactivity window.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// Create mints a fresh session with an unguessable identifier.
func (r *Registry) Create(ctx context.Context) (*domain.Session, error) {
	now := r.now()
	sess := &domain.Session{
		ID:            "sess_" + uuid.NewString(),
		CreatedAt:     now,
		LastTouchedAt: now,
	}
	if err := r.repo.InsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Touch refreshes the session's last-touched timestamp and returns the
// record. An unknown or expired identifier fails with a session_not_found
// error; expired records are deleted on detection so the identifier is never
// reused.
func (r *Registry) Touch(ctx context.Context, id string) (*domain.Session, error) {
	unlock := r.lock(id)
	defer unlock()

	sess, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := r.now()
	if err := r.repo.TouchSession(ctx, id, now); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	sess.LastTouchedAt = now
	return sess, nil
}

// RecordDiscovery appends tool slugs to the session's discovery log. The log
// is diagnostic only; execution is never restricted to previously discovered
// tools.
func (r *Registry) RecordDiscovery(ctx context.Context, id string, slugs []string) error {
	if len(slugs) == 0 {
		return nil
	}

	unlock := r.lock(id)
	defer unlock()

	if _, err := r.load(ctx, id); err != nil {
		return err
	}
	if err := r.repo.AppendDiscovery(ctx, id, slugs, r.now()); err != nil {
		return fmt.Errorf("record discovery: %w", err)
	}
	return nil
}

// Get returns the session without refreshing its timestamp.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Session, error) {
	unlock := r.lock(id)
	defer unlock()
	return r.load(ctx, id)
}

// load fetches the record and applies lazy expiry. Caller must hold the
// per-id lock.
func (r *Registry) load(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := r.repo.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if sess == nil {
		return nil, proxyerr.Newf(proxyerr.KindSessionNotFound, "session %q not found", id)
	}
	if sess.Expired(r.ttl, r.now()) {
		if err := r.repo.DeleteSession(ctx, id); err != nil {
			return nil, fmt.Errorf("evict expired session: %w", err)
		}
		return nil, proxyerr.Newf(proxyerr.KindSessionNotFound, "session %q expired", id)
	}
	return sess, nil
}

func (r *Registry) lock(id string) func() {
	lock, _ := r.locks.LoadOrStore(id, &sync.Mutex{})
	mu := lock.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
