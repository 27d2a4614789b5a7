// Package presence tracks per-bare-JID availability, scoped to a single
// account (§3: "PresenceState"). It is a plain in-memory map guarded by a
// mutex, not shared across accounts — each monitor owns its own Tracker.
package presence

import (
	"sync"
	"time"
)

// State is the last known presence for one bare JID.
type State struct {
	JID       string
	Available bool
	Status    string
	Show      string
	Priority  int8
	LastSeen  time.Time
}

// Tracker holds presence state for every bare JID an account has seen.
type Tracker struct {
	mu    sync.RWMutex
	byJID map[string]State
}

// NewTracker creates an empty presence tracker.
func NewTracker() *Tracker {
	return &Tracker{byJID: make(map[string]State)}
}

// Update records a presence stanza's effect on a bare JID's state.
func (t *Tracker) Update(bareJID string, available bool, status, show string, priority int8) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := State{
		JID:       bareJID,
		Available: available,
		Status:    status,
		Show:      show,
		Priority:  priority,
		LastSeen:  time.Now(),
	}
	t.byJID[bareJID] = s
	return s
}

// Get returns the current state for a bare JID, if any has been recorded.
func (t *Tracker) Get(bareJID string) (State, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.byJID[bareJID]
	return s, ok
}

// IsAvailable reports whether the last recorded presence for bareJID was
// available. Unknown JIDs are treated as unavailable.
func (t *Tracker) IsAvailable(bareJID string) bool {
	s, ok := t.Get(bareJID)
	return ok && s.Available
}

// Forget removes all state for a bare JID, used on unsubscribe/account reset.
func (t *Tracker) Forget(bareJID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byJID, bareJID)
}

// Snapshot returns a copy of every tracked state, for diagnostics/probes.
func (t *Tracker) Snapshot() []State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]State, 0, len(t.byJID))
	for _, s := range t.byJID {
		out = append(out, s)
	}
	return out
}
