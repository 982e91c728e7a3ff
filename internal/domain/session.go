package domain

import (
	"time"
)

// Session represents one logical task context spanning a discovery call and
// zero or more execution calls. The identifier is unique for the session's
// lifetime and is never reused after expiry.
type Session struct {
	ID            string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
	LastTouchedAt time.Time `json:"last_touched_at"`
	Discovered    []string  `json:"discovered,omitempty"`
}

// Expired reports whether the session has passed its inactivity TTL as of now.
func (s *Session) Expired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastTouchedAt) > ttl
}

// RemainingTTL returns the time until the session expires.
// Returns 0 if the session has already expired.
func (s *Session) RemainingTTL(ttl time.Duration, now time.Time) time.Duration {
	remaining := s.LastTouchedAt.Add(ttl).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
