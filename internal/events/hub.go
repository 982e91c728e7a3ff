// Package events fans out workflow step progress to live observers.
package events

import (
	"sync"
	"time"
)

// StepEvent describes one workflow step outcome as it happens.
type StepEvent struct {
	SessionID string    `json:"session_id,omitempty"`
	ToolSlug  string    `json:"tool_slug"`
	Toolkit   string    `json:"toolkit"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

const subscriberBuffer = 16

// Hub routes step events to subscribers by session id. Publishing never
// blocks: a subscriber that cannot keep up loses events rather than stalling
// workflow execution.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan StepEvent]struct{}
}

// NewHub creates an event hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan StepEvent]struct{})}
}

// Subscribe registers an observer for one session's events. The returned
// cancel func must be called when the observer goes away.
func (h *Hub) Subscribe(sessionID string) (<-chan StepEvent, func()) {
	ch := make(chan StepEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[chan StepEvent]struct{})
	}
	h.subs[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[sessionID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, sessionID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its session.
func (h *Hub) Publish(ev StepEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[ev.SessionID] {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full; drop rather than block the workflow.
		}
	}
}

// SubscriberCount reports how many observers one session has.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
