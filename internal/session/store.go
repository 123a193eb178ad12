// ABOUTME: Thread-safe conversation store with atomic per-key updates
// ABOUTME: Serializes all access to a single conversation while letting distinct keys proceed in parallel

package session

import (
	"sync"
)

// Store holds the live conversations. Update gives the caller exclusive
// access to one conversation for the duration of the callback, so a
// read-decide-write transition (including any blocking calls made while
// deciding) is atomic with respect to other events on the same key.
type Store interface {
	// Get returns a snapshot of the conversation for key, if one exists.
	Get(key Key) (Conversation, bool)

	// Update runs fn with exclusive ownership of the conversation for key,
	// creating a resting conversation on first use. Mutations made by fn are
	// retained. The error from fn is returned unchanged.
	Update(key Key, fn func(*Conversation) error) error
}

// MemoryStore is the in-process Store implementation. Conversations live for
// the process lifetime; there is no expiry, which is acceptable for a small
// static set of authorized users.
type MemoryStore struct {
	mu    sync.Mutex
	convs map[Key]*entry
}

type entry struct {
	mu   sync.Mutex
	conv Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[Key]*entry)}
}

// Get returns a copy of the conversation for key.
func (s *MemoryStore) Get(key Key) (Conversation, bool) {
	s.mu.Lock()
	e, ok := s.convs[key]
	s.mu.Unlock()
	if !ok {
		return Conversation{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv, true
}

// Update runs fn with the per-key lock held. The outer map lock is released
// before fn runs, so a slow transition on one conversation never blocks
// events for other conversations.
func (s *MemoryStore) Update(key Key, fn func(*Conversation) error) error {
	s.mu.Lock()
	e, ok := s.convs[key]
	if !ok {
		e = &entry{conv: Conversation{Key: key, State: StateMain}}
		s.convs[key] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(&e.conv)
}

// Len returns the number of tracked conversations.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}
