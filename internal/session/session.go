// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

// Package session holds per-visitor server-side state: identity, the CSRF
// token, and the one-shot flash message. Everything is reached through the
// Store interface so the backing implementation (in-memory or Redis) is
// substitutable.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session identifier and token sizing.
const (
	// IDBytes is the entropy of a session identifier (64 hex chars).
	IDBytes = 32

	// CSRFTokenBytes is the entropy of a CSRF token (64 hex chars).
	CSRFTokenBytes = 32

	// DefaultTTL is how long an idle session survives in the store.
	DefaultTTL = 24 * time.Hour
)

// Flash is a one-shot notification consumed by the next read.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the per-visitor state. A nil UserID means anonymous.
// Username and Email are denormalized copies of the user record, kept in
// sync on profile update. The CSRF token is generated lazily; it stays
// stable for the whole session lifetime, across Regenerate.
type Session struct {
	ID        string
	UserID    *ulid.ULID
	Username  string
	Email     string
	CSRFToken string
	Flash     *Flash
	CreatedAt time.Time
}

// Authenticated returns true when the session carries an identity.
func (s *Session) Authenticated() bool {
	return s.UserID != nil
}

// Authenticate promotes the session with the given identity fields.
// The caller is responsible for regenerating the session ID afterwards.
func (s *Session) Authenticate(userID ulid.ULID, username, email string) {
	id := userID
	s.UserID = &id
	s.Username = username
	s.Email = email
}

// Store resolves, mutates, and destroys sessions. Implementations must be
// safe for concurrent use; last-write-wins is acceptable for flash and
// CSRF fields, but Regenerate and Destroy must never leave a session
// half-migrated.
type Store interface {
	// Resolve returns the session for id, or a freshly persisted
	// anonymous session when id is empty or unknown.
	Resolve(ctx context.Context, id string) (*Session, error)

	// Save persists the current field values of the session.
	Save(ctx context.Context, s *Session) error

	// Regenerate moves the session to a fresh identifier in one step:
	// the old identifier stops resolving before or atomically with the
	// new one becoming valid. s.ID is updated in place and the new
	// identifier returned. This is the fixation defense; it must run
	// immediately after every successful login.
	Regenerate(ctx context.Context, s *Session) (string, error)

	// Destroy clears all fields and removes the entry.
	Destroy(ctx context.Context, id string) error

	// SetFlash stores a one-shot flash message on the session.
	SetFlash(ctx context.Context, s *Session, kind, message string) error

	// TakeFlash returns the flash at most once, clearing it.
	TakeFlash(ctx context.Context, s *Session) (*Flash, error)

	// CSRFToken lazily creates and returns the session's CSRF token.
	// Stable across calls until the session is destroyed.
	CSRFToken(ctx context.Context, s *Session) (string, error)

	// VerifyCSRF compares candidate against the session's token in
	// constant time. False when no token has ever been issued.
	VerifyCSRF(s *Session, candidate string) bool
}

// NewID generates a session identifier from a cryptographically secure
// random source.
func NewID() (string, error) {
	return randomHex(IDBytes, "SESSION_ID_GENERATE_FAILED")
}

// NewCSRFToken generates a CSRF token.
func NewCSRFToken() (string, error) {
	return randomHex(CSRFTokenBytes, "CSRF_TOKEN_GENERATE_FAILED")
}

func randomHex(n int, failCode string) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code(failCode).
			With("operation", "crypto/rand.Read").
			With("requested_bytes", n).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

// ConstantTimeEquals compares two tokens without leaking the position of
// the first mismatch. Empty expected always fails.
func ConstantTimeEquals(expected, candidate string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}
