// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/auth"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, NewUserRepository(mock)
}

func userRow(user *auth.User) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "username", "email", "password_hash",
		"reset_token", "reset_token_expires_at", "created_at", "updated_at",
	}).AddRow(
		user.ID.String(), user.Username, user.Email, user.PasswordHash,
		user.ResetToken, user.ResetTokenExpiresAt, user.CreatedAt, user.UpdatedAt,
	)
}

func sampleUser() *auth.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &auth.User{
		ID:           ulid.Make(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$argon2id$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func uniqueViolation() *pgconn.PgError {
	return &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}
}

func TestUserRepository_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts user", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user := sampleUser()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Insert(ctx, user))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to duplicate account", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user := sampleUser()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
			WillReturnError(uniqueViolation())

		err := repo.Insert(ctx, user)
		require.ErrorIs(t, err, auth.ErrDuplicateAccount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other errors pass through wrapped", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user := sampleUser()

		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID.String(), user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
			WillReturnError(errors.New("connection refused"))

		err := repo.Insert(ctx, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrDuplicateAccount)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestUserRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("finds user", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user := sampleUser()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
			WithArgs(user.ID.String()).
			WillReturnRows(userRow(user))

		got, err := repo.FindByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, user.Username, got.Username)
		assert.Nil(t, got.ResetToken)
	})

	t.Run("unknown id maps to not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		id := ulid.Make()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByID(ctx, id)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_FindByUsernameOrEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("looks up by username", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user := sampleUser()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE username = \$1`).
			WithArgs("alice").
			WillReturnRows(userRow(user))

		got, err := repo.FindByUsernameOrEmail(ctx, "alice", false)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("looks up by email", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user := sampleUser()

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
			WithArgs("alice@example.com").
			WillReturnRows(userRow(user))

		got, err := repo.FindByUsernameOrEmail(ctx, "alice@example.com", true)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("unknown identifier maps to not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE username = \$1`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByUsernameOrEmail(ctx, "ghost", false)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_UpdateFields(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("updates username only", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET updated_at = \$2, username = \$3 WHERE id = \$1`).
			WithArgs(id.String(), pgxmock.AnyArg(), "alice2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		name := "alice2"
		require.NoError(t, repo.UpdateFields(ctx, id, auth.ProfileUpdate{Username: &name}))
	})

	t.Run("updates both fields", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET updated_at = \$2, username = \$3, email = \$4 WHERE id = \$1`).
			WithArgs(id.String(), pgxmock.AnyArg(), "alice2", "alice2@example.com").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		name := "alice2"
		email := "alice2@example.com"
		require.NoError(t, repo.UpdateFields(ctx, id, auth.ProfileUpdate{Username: &name, Email: &email}))
	})

	t.Run("empty update rejected without query", func(t *testing.T) {
		_, repo := newMockRepo(t)

		err := repo.UpdateFields(ctx, id, auth.ProfileUpdate{})
		require.Error(t, err)
	})

	t.Run("unique violation maps to duplicate account", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET updated_at = \$2, email = \$3 WHERE id = \$1`).
			WithArgs(id.String(), pgxmock.AnyArg(), "taken@example.com").
			WillReturnError(uniqueViolation())

		email := "taken@example.com"
		err := repo.UpdateFields(ctx, id, auth.ProfileUpdate{Email: &email})
		require.ErrorIs(t, err, auth.ErrDuplicateAccount)
	})

	t.Run("zero rows maps to not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET updated_at = \$2, username = \$3 WHERE id = \$1`).
			WithArgs(id.String(), pgxmock.AnyArg(), "alice2").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		name := "alice2"
		err := repo.UpdateFields(ctx, id, auth.ProfileUpdate{Username: &name})
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("updates hash", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET password_hash = \$2, updated_at = \$3`).
			WithArgs(id.String(), "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdatePassword(ctx, id, "$argon2id$new"))
	})

	t.Run("zero rows maps to not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET password_hash = \$2, updated_at = \$3`).
			WithArgs(id.String(), "$argon2id$new", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdatePassword(ctx, id, "$argon2id$new")
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_SetResetToken(t *testing.T) {
	ctx := context.Background()
	expiresAt := time.Now().Add(24 * time.Hour)

	t.Run("sets token", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET reset_token = \$2, reset_token_expires_at = \$3`).
			WithArgs("alice@example.com", "sometoken", expiresAt, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.SetResetToken(ctx, "alice@example.com", "sometoken", expiresAt))
	})

	t.Run("unknown email is indistinguishable from success", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET reset_token = \$2, reset_token_expires_at = \$3`).
			WithArgs("ghost@example.com", "sometoken", expiresAt, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		require.NoError(t, repo.SetResetToken(ctx, "ghost@example.com", "sometoken", expiresAt))
	})
}

func TestUserRepository_FindByValidResetToken(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("finds holder of valid token", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		user := sampleUser()
		token := "sometoken"
		expires := now.Add(time.Hour)
		user.ResetToken = &token
		user.ResetTokenExpiresAt = &expires

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE reset_token = \$1 AND reset_token_expires_at > \$2`).
			WithArgs(token, now).
			WillReturnRows(userRow(user))

		got, err := repo.FindByValidResetToken(ctx, token, now)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		require.NotNil(t, got.ResetToken)
		assert.Equal(t, token, *got.ResetToken)
	})

	t.Run("expired or unknown token maps to not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`SELECT (.+) FROM users WHERE reset_token = \$1 AND reset_token_expires_at > \$2`).
			WithArgs("stale", now).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByValidResetToken(ctx, "stale", now)
		require.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_RedeemResetToken(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("redeems valid token", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		id := ulid.Make()

		mock.ExpectQuery(`UPDATE users`).
			WithArgs("sometoken", now, "$argon2id$new", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id.String()))

		got, err := repo.RedeemResetToken(ctx, "sometoken", now, "$argon2id$new")
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("spent token maps to invalid or expired", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectQuery(`UPDATE users`).
			WithArgs("sometoken", now, "$argon2id$new", pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.RedeemResetToken(ctx, "sometoken", now, "$argon2id$new")
		require.ErrorIs(t, err, auth.ErrInvalidOrExpiredToken)
	})
}

func TestUserRepository_ClearResetToken(t *testing.T) {
	ctx := context.Background()
	id := ulid.Make()

	t.Run("clears token", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET reset_token = NULL`).
			WithArgs(id.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.ClearResetToken(ctx, id))
	})

	t.Run("already clear is not an error", func(t *testing.T) {
		mock, repo := newMockRepo(t)

		mock.ExpectExec(`UPDATE users SET reset_token = NULL`).
			WithArgs(id.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		require.NoError(t, repo.ClearResetToken(ctx, id))
	})
}
