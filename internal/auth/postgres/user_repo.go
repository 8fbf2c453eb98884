// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

// Package postgres implements the auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/burrowhq/burrow/internal/auth"
)

// UserRepository implements auth.UserRepository using PostgreSQL.
type UserRepository struct {
	pool DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool DB) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `id, username, email, password_hash, reset_token, reset_token_expires_at, created_at, updated_at`

// Insert stores a new user. Uniqueness of username and email is left to
// the table constraints; a violation surfaces as ErrDuplicateAccount.
func (r *UserRepository) Insert(ctx context.Context, user *auth.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_DUPLICATE").
				With("username", user.Username).
				Wrap(auth.ErrDuplicateAccount)
		}
		return oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// FindByID retrieves a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id.String())

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_BY_ID_FAILED").
			With("operation", "find user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return user, nil
}

// FindByUsernameOrEmail retrieves a user by exactly one lookup column.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string, byEmail bool) (*auth.User, error) {
	column := "username"
	if byEmail {
		column = "email"
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE `+column+` = $1
	`, identifier)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("identifier", identifier).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user by "+column).
			Wrap(err)
	}
	return user, nil
}

// UpdateFields applies a partial username/email update.
func (r *UserRepository) UpdateFields(ctx context.Context, id ulid.ULID, fields auth.ProfileUpdate) error {
	if fields.Empty() {
		return oops.Code("USER_NO_FIELDS").Errorf("no fields to update")
	}

	// Build the SET clause from the present fields only.
	set := "updated_at = $2"
	args := []any{id.String(), time.Now()}
	if fields.Username != nil {
		args = append(args, *fields.Username)
		set += ", username = $3"
	}
	if fields.Email != nil {
		args = append(args, *fields.Email)
		if fields.Username != nil {
			set += ", email = $4"
		} else {
			set += ", email = $3"
		}
	}

	result, err := r.pool.Exec(ctx, `UPDATE users SET `+set+` WHERE id = $1`, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_DUPLICATE").
				With("id", id.String()).
				Wrap(auth.ErrDuplicateAccount)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update fields").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword updates only the password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, id.String(), passwordHash, time.Now())
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetResetToken stores a reset token and expiry on the user with the
// given email. Zero rows affected is not an error; callers must not be
// able to tell an unknown email from a persisted token.
func (r *UserRepository) SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET reset_token = $2, reset_token_expires_at = $3, updated_at = $4
		WHERE email = $1
	`, email, token, expiresAt, time.Now())
	if err != nil {
		return oops.Code("USER_SET_RESET_TOKEN_FAILED").
			With("operation", "set reset token").
			Wrap(err)
	}
	return nil
}

// FindByValidResetToken retrieves the user holding an unexpired token.
func (r *UserRepository) FindByValidResetToken(ctx context.Context, token string, now time.Time) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE reset_token = $1 AND reset_token_expires_at > $2
	`, token, now)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_BY_TOKEN_FAILED").
			With("operation", "find user by reset token").
			Wrap(err)
	}
	return user, nil
}

// RedeemResetToken sets the new password hash and clears the token fields
// in one UPDATE guarded by token validity. With zero rows affected the
// token was unknown, expired, or already redeemed.
func (r *UserRepository) RedeemResetToken(ctx context.Context, token string, now time.Time, newHash string) (ulid.ULID, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $3, reset_token = NULL, reset_token_expires_at = NULL, updated_at = $4
		WHERE reset_token = $1 AND reset_token_expires_at > $2
		RETURNING id
	`, token, now, newHash, time.Now())

	var idStr string
	err := row.Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("RESET_TOKEN_INVALID").Wrap(auth.ErrInvalidOrExpiredToken)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("USER_REDEEM_TOKEN_FAILED").
			With("operation", "redeem reset token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("USER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	return id, nil
}

// ClearResetToken removes any pending reset token for a user. Clearing an
// already-clear token is not an error.
func (r *UserRepository) ClearResetToken(ctx context.Context, id ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET reset_token = NULL, reset_token_expires_at = NULL, updated_at = $2
		WHERE id = $1
	`, id.String(), time.Now())
	if err != nil {
		return oops.Code("USER_CLEAR_RESET_TOKEN_FAILED").
			With("operation", "clear reset token").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		username     string
		email        string
		passwordHash string
		resetToken   *string
		resetExpires *time.Time
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(&idStr, &username, &email, &passwordHash, &resetToken, &resetExpires, &createdAt, &updatedAt)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}

	return &auth.User{
		ID:                  id,
		Username:            username,
		Email:               email,
		PasswordHash:        passwordHash,
		ResetToken:          resetToken,
		ResetTokenExpiresAt: resetExpires,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
	}, nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
