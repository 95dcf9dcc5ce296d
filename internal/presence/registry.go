// Package presence tracks which users currently hold a live connection.
// The registry is the single source of truth for reachability within this
// process; it is purely in-memory and rebuilt empty on restart.
package presence

import (
	"sync"

	"github.com/guildhub/guildhub/internal/event"
)

// Handle is one live bidirectional connection as seen by the registry and
// the dispatch router.
type Handle interface {
	// Push enqueues an outbound event for delivery on this connection.
	// Pushes on a single handle are delivered in the order enqueued.
	Push(ev event.Outbound) error
}

// Registry maps user ids to their active connection handle. At most one
// handle per user is retained; a reconnect overwrites the previous entry and
// orphans the older session.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register inserts or overwrites the mapping for userID. Returns whether a
// prior handle existed (diagnostic only, not behavior-altering).
func (r *Registry) Register(userID string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, hadPrior := r.handles[userID]
	r.handles[userID] = h
	return hadPrior
}

// Lookup returns the live handle for userID, if any.
func (r *Registry) Lookup(userID string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[userID]
	return h, ok
}

// Deregister removes the mapping only if the currently registered handle is
// exactly h, so a stale disconnect from a superseded connection can never
// evict a newer, valid one. Returns whether the entry was removed.
func (r *Registry) Deregister(userID string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.handles[userID]
	if !ok || current != h {
		return false
	}
	delete(r.handles, userID)
	return true
}

// AllHandlesExcept returns the handles of every registered user other than
// userID, for presence-broadcast fan-out.
func (r *Registry) AllHandlesExcept(userID string) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.handles))
	for id, h := range r.handles {
		if id != userID {
			out = append(out, h)
		}
	}
	return out
}

// Size returns the number of registered users.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
