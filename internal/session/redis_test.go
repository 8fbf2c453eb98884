// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package session

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	t.Run("authenticated session", func(t *testing.T) {
		userID := ulid.Make()
		created := time.Now().Truncate(time.Second)
		s := &Session{
			ID:        "abc123",
			UserID:    &userID,
			Username:  "alice",
			Email:     "alice@example.com",
			CSRFToken: "token",
			Flash:     &Flash{Kind: "success", Message: "hi"},
			CreatedAt: created,
		}

		raw, err := encodeRecord(s)
		require.NoError(t, err)

		got, err := decodeRecord("abc123", raw)
		require.NoError(t, err)
		assert.Equal(t, "abc123", got.ID)
		require.NotNil(t, got.UserID)
		assert.Equal(t, userID, *got.UserID)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Equal(t, "token", got.CSRFToken)
		require.NotNil(t, got.Flash)
		assert.Equal(t, "hi", got.Flash.Message)
		assert.True(t, got.CreatedAt.Equal(created))
	})

	t.Run("anonymous session", func(t *testing.T) {
		s := &Session{ID: "anon", CreatedAt: time.Now()}

		raw, err := encodeRecord(s)
		require.NoError(t, err)

		got, err := decodeRecord("anon", raw)
		require.NoError(t, err)
		assert.Nil(t, got.UserID)
		assert.Nil(t, got.Flash)
		assert.False(t, got.Authenticated())
	})

	t.Run("corrupt user id fails decode", func(t *testing.T) {
		_, err := decodeRecord("x", []byte(`{"user_id":"not-a-ulid","created_at":0}`))
		require.Error(t, err)
	})

	t.Run("corrupt payload fails decode", func(t *testing.T) {
		_, err := decodeRecord("x", []byte(`{{{`))
		require.Error(t, err)
	})
}

func TestIsRedisMissingKey(t *testing.T) {
	assert.False(t, isRedisMissingKey(nil))
	assert.False(t, isRedisMissingKey(assert.AnError))
	assert.True(t, isRedisMissingKey(replyErr("ERR no such key")))
	// Proxies may append detail after the standard reply.
	assert.True(t, isRedisMissingKey(replyErr("ERR no such key (rename)")))
	assert.False(t, isRedisMissingKey(replyErr("WRONGTYPE Operation against a key")))
}

type replyErr string

func (e replyErr) Error() string { return string(e) }
