package contacts

import (
	"slices"
	"sync"
)

// PresenceState is the volatile availability of one contact.
type PresenceState string

const (
	StateUnknown     PresenceState = "UNKNOWN"
	StateAvailable   PresenceState = "AVAILABLE"
	StateUnavailable PresenceState = "UNAVAILABLE"
)

// validTransitions defines the presence machine. Unknown is the start state
// for every contact on every process start and is never re-entered: presence
// only resets by restarting, which drops the whole tracker.
var validTransitions = map[PresenceState][]PresenceState{
	StateUnknown:     {StateAvailable, StateUnavailable},
	StateAvailable:   {StateAvailable, StateUnavailable},
	StateUnavailable: {StateAvailable, StateUnavailable},
}

type presenceEntry struct {
	state    PresenceState
	lastSeen int64 // unix millis
}

// PresenceTracker holds in-memory presence for all contacts. Nothing here is
// ever written to the store; a fresh tracker reads Unknown/0 for everyone.
type PresenceTracker struct {
	mu      sync.RWMutex
	entries map[string]presenceEntry
}

// NewPresenceTracker creates an empty tracker.
func NewPresenceTracker() *PresenceTracker {
	return &PresenceTracker{entries: make(map[string]presenceEntry)}
}

// State returns the current state and last-seen time for a contact.
// Untracked contacts yield Unknown/0.
func (p *PresenceTracker) State(conversationID string) (PresenceState, int64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[conversationID]
	if !ok {
		return StateUnknown, 0
	}
	return e.state, e.lastSeen
}

// SetAvailable transitions a contact to Available or Unavailable.
func (p *PresenceTracker) SetAvailable(conversationID string, available bool) {
	to := StateUnavailable
	if available {
		to = StateAvailable
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entries[conversationID]
	if e.state == "" {
		e.state = StateUnknown
	}
	if !slices.Contains(validTransitions[e.state], to) {
		return
	}
	e.state = to
	p.entries[conversationID] = e
}

// SetLastSeen records the last-known-online time for a contact.
func (p *PresenceTracker) SetLastSeen(conversationID string, lastSeen int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entries[conversationID]
	if e.state == "" {
		e.state = StateUnknown
	}
	e.lastSeen = lastSeen
	p.entries[conversationID] = e
}
