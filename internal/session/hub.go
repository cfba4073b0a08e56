package session

import (
	"sync"

	"kluvs-auth/internal/auth"
)

// ChangedFunc receives the new identity for a session, or nil on sign-out.
type ChangedFunc func(identity *auth.Identity)

// Hub fans out session-changed notifications to in-process subscribers,
// keyed by session ID. It is intentionally not a general-purpose event
// bus: no buffering, no cross-process delivery, callbacks run on the
// publisher's goroutine.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]ChangedFunc
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[int]ChangedFunc),
	}
}

// Subscribe registers fn for changes to the given session.
// The returned function removes the subscription; calling it twice is safe.
func (h *Hub) Subscribe(sessionID string, fn ChangedFunc) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[int]ChangedFunc)
	}
	id := h.next
	h.next++
	h.subs[sessionID][id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[sessionID], id)
		if len(h.subs[sessionID]) == 0 {
			delete(h.subs, sessionID)
		}
	}
}

// Publish notifies all subscribers of the session. A nil identity means
// the session ended.
func (h *Hub) Publish(sessionID string, identity *auth.Identity) {
	h.mu.Lock()
	fns := make([]ChangedFunc, 0, len(h.subs[sessionID]))
	for _, fn := range h.subs[sessionID] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	// Run outside the lock so a callback may unsubscribe itself.
	for _, fn := range fns {
		fn(identity)
	}
}
