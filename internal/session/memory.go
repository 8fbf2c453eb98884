// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package session

import (
	"context"
	"sync"
	"time"
)

// memoryEntry pairs a stored session with the time of its last save, so
// expiry counts from activity rather than creation.
type memoryEntry struct {
	sess    *Session
	savedAt time.Time
}

// MemoryStore is an in-process Store for tests and single-node
// deployments. All operations take the store lock, so Regenerate and
// Destroy are atomic with respect to concurrent Resolve calls. The TTL is
// an idle lifetime, matching RedisStore: every Save pushes expiry out.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	ttl     time.Duration
}

// NewMemoryStore creates a MemoryStore. ttl <= 0 means DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
	}
}

// Resolve returns the session for id, or a fresh anonymous one.
func (m *MemoryStore) Resolve(_ context.Context, id string) (*Session, error) {
	if id != "" {
		m.mu.RLock()
		e, ok := m.entries[id]
		m.mu.RUnlock()
		if ok {
			if time.Since(e.savedAt) < m.ttl {
				return snapshot(e.sess), nil
			}
			// Expired entries stop resolving; fall through to a fresh one.
			m.mu.Lock()
			delete(m.entries, id)
			m.mu.Unlock()
		}
	}

	newID, err := NewID()
	if err != nil {
		return nil, err
	}
	s := &Session{ID: newID, CreatedAt: time.Now()}

	m.mu.Lock()
	m.entries[newID] = &memoryEntry{sess: snapshot(s), savedAt: time.Now()}
	m.mu.Unlock()

	return s, nil
}

// Save persists the session's current field values and refreshes its
// idle expiry.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	m.entries[s.ID] = &memoryEntry{sess: snapshot(s), savedAt: time.Now()}
	m.mu.Unlock()
	return nil
}

// Regenerate migrates the session to a new identifier and invalidates the
// old one in a single critical section.
func (m *MemoryStore) Regenerate(_ context.Context, s *Session) (string, error) {
	newID, err := NewID()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	delete(m.entries, s.ID)
	s.ID = newID
	m.entries[newID] = &memoryEntry{sess: snapshot(s), savedAt: time.Now()}
	m.mu.Unlock()

	return newID, nil
}

// Destroy removes the entry for id.
func (m *MemoryStore) Destroy(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// SetFlash stores a one-shot flash message.
func (m *MemoryStore) SetFlash(ctx context.Context, s *Session, kind, message string) error {
	s.Flash = &Flash{Kind: kind, Message: message}
	return m.Save(ctx, s)
}

// TakeFlash returns and clears the flash, if any.
func (m *MemoryStore) TakeFlash(ctx context.Context, s *Session) (*Flash, error) {
	// Re-read the stored entry so a flash set by another request in the
	// same session is not missed.
	m.mu.RLock()
	stored, ok := m.entries[s.ID]
	m.mu.RUnlock()
	if ok && stored.sess.Flash != nil {
		s.Flash = stored.sess.Flash
	}

	f := s.Flash
	if f == nil {
		return nil, nil
	}
	s.Flash = nil
	return f, m.Save(ctx, s)
}

// CSRFToken lazily creates and caches the session's CSRF token.
func (m *MemoryStore) CSRFToken(ctx context.Context, s *Session) (string, error) {
	if s.CSRFToken != "" {
		return s.CSRFToken, nil
	}
	token, err := NewCSRFToken()
	if err != nil {
		return "", err
	}
	s.CSRFToken = token
	return token, m.Save(ctx, s)
}

// VerifyCSRF compares candidate against the cached token in constant time.
func (m *MemoryStore) VerifyCSRF(s *Session, candidate string) bool {
	return ConstantTimeEquals(s.CSRFToken, candidate)
}

// Len returns the number of live sessions. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// snapshot copies a session so callers cannot mutate stored state without
// going through Save.
func snapshot(s *Session) *Session {
	c := *s
	if s.UserID != nil {
		id := *s.UserID
		c.UserID = &id
	}
	if s.Flash != nil {
		f := *s.Flash
		c.Flash = &f
	}
	return &c
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
