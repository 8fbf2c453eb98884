// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/auth"
	"github.com/burrowhq/burrow/internal/auth/mocks"
	"github.com/burrowhq/burrow/pkg/errutil"
)

func TestNewPasswordResetService_NilDependencies(t *testing.T) {
	t.Run("nil user repository", func(t *testing.T) {
		svc, err := auth.NewPasswordResetService(nil, mocks.NewMockPasswordHasher(t))
		require.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("nil hasher", func(t *testing.T) {
		svc, err := auth.NewPasswordResetService(mocks.NewMockUserRepository(t), nil)
		require.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("nil logger", func(t *testing.T) {
		svc, err := auth.NewPasswordResetServiceWithLogger(
			mocks.NewMockUserRepository(t), mocks.NewMockPasswordHasher(t), nil)
		require.Error(t, err)
		assert.Nil(t, svc)
	})
}

func newResetService(t *testing.T) (*auth.PasswordResetService, *mocks.MockUserRepository, *mocks.MockPasswordHasher) {
	t.Helper()
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	svc, err := auth.NewPasswordResetService(users, hasher)
	require.NoError(t, err)
	return svc, users, hasher
}

func TestPasswordResetService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues token for known email", func(t *testing.T) {
		svc, users, _ := newResetService(t)
		user := &auth.User{ID: ulid.Make(), Username: "alice", Email: "alice@example.com"}

		users.On("FindByUsernameOrEmail", ctx, "alice@example.com", true).Return(user, nil)
		users.On("SetResetToken", ctx, "alice@example.com", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) {
				token := args.String(2)
				assert.Len(t, token, 64)
				expiresAt := args.Get(3).(time.Time)
				assert.WithinDuration(t, time.Now().Add(auth.ResetTokenExpiry), expiresAt, time.Minute)
			}).
			Return(nil)

		token, err := svc.Issue(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("unknown email yields empty token and nil error", func(t *testing.T) {
		svc, users, _ := newResetService(t)

		users.On("FindByUsernameOrEmail", ctx, "ghost@example.com", true).Return(nil, auth.ErrNotFound)

		token, err := svc.Issue(ctx, "ghost@example.com")
		require.NoError(t, err)
		assert.Empty(t, token)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		svc, _, _ := newResetService(t)

		_, err := svc.Issue(ctx, "not-an-email")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_EMAIL")
	})

	t.Run("repository failure propagates", func(t *testing.T) {
		svc, users, _ := newResetService(t)

		users.On("FindByUsernameOrEmail", ctx, "alice@example.com", true).Return(nil, errors.New("connection refused"))

		_, err := svc.Issue(ctx, "alice@example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_ISSUE_FAILED")
	})
}

func TestPasswordResetService_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		svc, users, _ := newResetService(t)
		user := &auth.User{ID: ulid.Make()}

		users.On("FindByValidResetToken", ctx, "sometoken", mock.AnythingOfType("time.Time")).Return(user, nil)

		require.NoError(t, svc.Validate(ctx, "sometoken"))
	})

	t.Run("unknown or expired token", func(t *testing.T) {
		svc, users, _ := newResetService(t)

		users.On("FindByValidResetToken", ctx, "badtoken", mock.AnythingOfType("time.Time")).Return(nil, auth.ErrNotFound)

		err := svc.Validate(ctx, "badtoken")
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
	})

	t.Run("empty token short-circuits", func(t *testing.T) {
		svc, _, _ := newResetService(t)

		err := svc.Validate(ctx, "")
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
	})
}

func TestPasswordResetService_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("redeems valid token", func(t *testing.T) {
		svc, users, hasher := newResetService(t)
		userID := ulid.Make()

		hasher.On("Hash", "newpassword1").Return("$argon2id$new", nil)
		users.On("RedeemResetToken", ctx, "sometoken", mock.AnythingOfType("time.Time"), "$argon2id$new").
			Return(userID, nil)

		require.NoError(t, svc.Redeem(ctx, "sometoken", "newpassword1"))
	})

	t.Run("spent token fails", func(t *testing.T) {
		svc, users, hasher := newResetService(t)

		hasher.On("Hash", "newpassword1").Return("$argon2id$new", nil)
		users.On("RedeemResetToken", ctx, "sometoken", mock.AnythingOfType("time.Time"), "$argon2id$new").
			Return(ulid.ULID{}, auth.ErrInvalidOrExpiredToken)

		err := svc.Redeem(ctx, "sometoken", "newpassword1")
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
	})

	t.Run("short password rejected before hashing", func(t *testing.T) {
		svc, _, _ := newResetService(t)

		err := svc.Redeem(ctx, "sometoken", "short")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_TOO_SHORT")
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		svc, _, _ := newResetService(t)

		err := svc.Redeem(ctx, "", "newpassword1")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "RESET_MISSING_FIELDS")
	})
}
