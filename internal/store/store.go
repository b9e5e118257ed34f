package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/wazapp/wazappd/internal/bus"
)

// EchoMarker is appended to a message id when a self-echo duplicate must be
// retained alongside the original outgoing message.
const EchoMarker = "*"

// Store is the single source of truth for contacts and messages.
//
// All mutating operations for one conversation id are linearized through a
// per-conversation mutex, so concurrent upserts never interleave their
// read-modify-write. Change notifications are published on the bus after the
// corresponding write committed, while the conversation lock is still held,
// which keeps them in commit order for any single subscriber.
type Store struct {
	db  *DB
	bus *bus.Bus

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// suppressed > 0 pauses contacts.updated fan-out (bulk imports).
	suppressed atomic.Int32
	pending    atomic.Bool
}

// New creates a store over an opened, migrated database. bus may be nil in
// which case no notifications are published.
func New(db *DB, b *bus.Bus) *Store {
	return &Store{
		db:    db,
		bus:   b,
		locks: make(map[string]*sync.Mutex),
	}
}

// DB exposes the underlying database for maintenance queries.
func (s *Store) DB() *DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// lockConversation acquires the write lock for one conversation id and
// returns the unlock function.
func (s *Store) lockConversation(conversationID string) func() {
	s.mu.Lock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// SuspendContactNotifications pauses contacts.updated events. Calls nest.
func (s *Store) SuspendContactNotifications() {
	s.suppressed.Add(1)
}

// ResumeContactNotifications re-enables contacts.updated events and fires a
// single coalesced event if any were held back.
func (s *Store) ResumeContactNotifications() {
	if s.suppressed.Add(-1) > 0 {
		return
	}
	if s.pending.Swap(false) {
		s.publish(bus.Event{Kind: bus.KindContactsUpdated, Timestamp: time.Now()})
	}
}

func (s *Store) notifyContactsUpdated(conversationID string) {
	if s.suppressed.Load() > 0 {
		s.pending.Store(true)
		return
	}
	s.publish(bus.Event{
		Kind:      bus.KindContactsUpdated,
		Timestamp: time.Now(),
		Payload:   conversationID,
	})
}

func (s *Store) publish(evt bus.Event) {
	if s.bus != nil {
		s.bus.Publish(evt)
	}
}
