// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package auth

import (
	"context"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username and password constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 8
)

// User is a registered account. The reset-token fields are non-nil only
// while a password reset is pending, and always together.
type User struct {
	ID                  ulid.ULID
	Username            string
	Email               string
	PasswordHash        string
	ResetToken          *string
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NewUser creates a validated User with a fresh ULID.
func NewUser(username, email, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasPendingReset returns true if a reset token is set and unexpired at t.
func (u *User) HasPendingReset(t time.Time) bool {
	return u.ResetToken != nil && u.ResetTokenExpiresAt != nil && t.Before(*u.ResetTokenExpiresAt)
}

// ValidateUsername checks length bounds for a username.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Errorf("username must be at least %d characters", MinUsernameLength)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}

// ValidateEmail checks that email parses as a bare RFC 5322 address.
func ValidateEmail(email string) error {
	if !IsEmailAddress(email) {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("invalid email format")
	}
	return nil
}

// IsEmailAddress reports whether s is a plain address like "a@b.c".
// Display names ("A <a@b.c>") are rejected; login uses this to decide
// between email and username lookup.
func IsEmailAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// ProfileUpdate is a partial field set for UpdateFields. Nil means leave
// the column untouched.
type ProfileUpdate struct {
	Username *string
	Email    *string
}

// Empty returns true if no field is set.
func (p ProfileUpdate) Empty() bool {
	return p.Username == nil && p.Email == nil
}

// UserRepository manages user persistence. Implementations must enforce
// the unique constraints on username and email, surfacing violations as
// ErrDuplicateAccount.
type UserRepository interface {
	// Insert stores a new user. Fails with ErrDuplicateAccount when the
	// username or email is already taken.
	Insert(ctx context.Context, user *User) error

	// FindByID retrieves a user by ID.
	FindByID(ctx context.Context, id ulid.ULID) (*User, error)

	// FindByUsernameOrEmail retrieves a user by the given identifier
	// using exactly one lookup column: email when byEmail is true,
	// username otherwise.
	FindByUsernameOrEmail(ctx context.Context, identifier string, byEmail bool) (*User, error)

	// UpdateFields applies a partial username/email update.
	UpdateFields(ctx context.Context, id ulid.ULID, fields ProfileUpdate) error

	// UpdatePassword updates only the password hash.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// SetResetToken stores a reset token and expiry on the user with the
	// given email. No error is returned when the email matches no user;
	// the zero-row update is deliberately indistinguishable from success.
	SetResetToken(ctx context.Context, email, token string, expiresAt time.Time) error

	// FindByValidResetToken retrieves the user holding token with an
	// expiry strictly after now. ErrNotFound covers both unknown and
	// expired tokens.
	FindByValidResetToken(ctx context.Context, token string, now time.Time) (*User, error)

	// RedeemResetToken atomically sets a new password hash and clears the
	// token fields, guarded by token validity at now. Returns the user ID
	// on success and ErrInvalidOrExpiredToken when no row qualifies, so a
	// token can never be redeemed twice.
	RedeemResetToken(ctx context.Context, token string, now time.Time, newHash string) (ulid.ULID, error)

	// ClearResetToken removes any pending reset token for a user.
	ClearResetToken(ctx context.Context, id ulid.ULID) error
}
