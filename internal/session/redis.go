// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// keyPrefix namespaces session keys in Redis.
const keyPrefix = "burrow:sess:"

// record is the wire form of a Session in Redis. The identifier lives in
// the key, not the value, so RENAME migrates a session atomically.
type record struct {
	UserID    string `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	CSRFToken string `json:"csrf_token,omitempty"`
	Flash     *Flash `json:"flash,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

// RedisStore is a Store backed by Redis, for multi-node deployments.
// Regenerate uses RENAME, which Redis executes atomically: the old key
// stops resolving in the same step that makes the new key valid.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. ttl <= 0 means DefaultTTL.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Resolve returns the session for id, or a fresh anonymous one.
func (r *RedisStore) Resolve(ctx context.Context, id string) (*Session, error) {
	if id != "" {
		raw, err := r.client.Get(ctx, keyPrefix+id).Bytes()
		switch {
		case err == nil:
			return decodeRecord(id, raw)
		case !errors.Is(err, redis.Nil):
			return nil, oops.Code("SESSION_RESOLVE_FAILED").
				With("operation", "redis GET").
				Wrap(err)
		}
	}

	newID, err := NewID()
	if err != nil {
		return nil, err
	}
	s := &Session{ID: newID, CreatedAt: time.Now()}
	if err := r.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save persists the session's current field values with the store TTL.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	raw, err := encodeRecord(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, keyPrefix+s.ID, raw, r.ttl).Err(); err != nil {
		return oops.Code("SESSION_SAVE_FAILED").
			With("operation", "redis SET").
			Wrap(err)
	}
	return nil
}

// Regenerate renames the session key to a fresh identifier. RENAME is
// atomic, so there is no window where neither identifier resolves.
func (r *RedisStore) Regenerate(ctx context.Context, s *Session) (string, error) {
	newID, err := NewID()
	if err != nil {
		return "", err
	}

	err = r.client.Rename(ctx, keyPrefix+s.ID, keyPrefix+newID).Err()
	if err != nil {
		// The old key may have expired mid-request; persisting under the
		// new identifier still invalidates the old one.
		if !isRedisMissingKey(err) {
			return "", oops.Code("SESSION_REGENERATE_FAILED").
				With("operation", "redis RENAME").
				Wrap(err)
		}
	}

	s.ID = newID
	if err := r.Save(ctx, s); err != nil {
		return "", err
	}
	return newID, nil
}

// Destroy removes the entry for id.
func (r *RedisStore) Destroy(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "redis DEL").
			Wrap(err)
	}
	return nil
}

// SetFlash stores a one-shot flash message.
func (r *RedisStore) SetFlash(ctx context.Context, s *Session, kind, message string) error {
	s.Flash = &Flash{Kind: kind, Message: message}
	return r.Save(ctx, s)
}

// TakeFlash returns and clears the flash, if any. Last-write-wins between
// concurrent requests of the same visitor is acceptable here.
func (r *RedisStore) TakeFlash(ctx context.Context, s *Session) (*Flash, error) {
	if s.Flash == nil {
		// Another request may have set a flash since this session was
		// resolved.
		fresh, err := r.Resolve(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		s.Flash = fresh.Flash
	}

	f := s.Flash
	if f == nil {
		return nil, nil
	}
	s.Flash = nil
	return f, r.Save(ctx, s)
}

// CSRFToken lazily creates and caches the session's CSRF token.
func (r *RedisStore) CSRFToken(ctx context.Context, s *Session) (string, error) {
	if s.CSRFToken != "" {
		return s.CSRFToken, nil
	}
	token, err := NewCSRFToken()
	if err != nil {
		return "", err
	}
	s.CSRFToken = token
	return token, r.Save(ctx, s)
}

// VerifyCSRF compares candidate against the cached token in constant time.
func (r *RedisStore) VerifyCSRF(s *Session, candidate string) bool {
	return ConstantTimeEquals(s.CSRFToken, candidate)
}

func encodeRecord(s *Session) ([]byte, error) {
	rec := record{
		Username:  s.Username,
		Email:     s.Email,
		CSRFToken: s.CSRFToken,
		Flash:     s.Flash,
		CreatedAt: s.CreatedAt.Unix(),
	}
	if s.UserID != nil {
		rec.UserID = s.UserID.String()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, oops.Code("SESSION_ENCODE_FAILED").Wrap(err)
	}
	return raw, nil
}

func decodeRecord(id string, raw []byte) (*Session, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").
			With("session_id", id).
			Wrap(err)
	}

	s := &Session{
		ID:        id,
		Username:  rec.Username,
		Email:     rec.Email,
		CSRFToken: rec.CSRFToken,
		Flash:     rec.Flash,
		CreatedAt: time.Unix(rec.CreatedAt, 0),
	}
	if rec.UserID != "" {
		uid, err := ulid.Parse(rec.UserID)
		if err != nil {
			return nil, oops.Code("SESSION_INVALID_USER_ID").
				With("user_id", rec.UserID).
				Wrap(err)
		}
		s.UserID = &uid
	}
	return s, nil
}

// isRedisMissingKey reports whether err is Redis' "no such key" reply to
// RENAME on an absent source key. go-redis exposes no typed sentinel for
// this reply, and proxies may append detail after the message, so match
// on the prefix of the error string.
func isRedisMissingKey(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "ERR no such key")
}

// Compile-time interface check.
var _ Store = (*RedisStore)(nil)
