// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// PasswordResetService handles the reset-token workflow. Tokens live on
// the user row, expire 24 hours after issuance, and survive exactly one
// redemption.
type PasswordResetService struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewPasswordResetService creates a PasswordResetService with a discarded
// logger.
func NewPasswordResetService(users UserRepository, hasher PasswordHasher) (*PasswordResetService, error) {
	return NewPasswordResetServiceWithLogger(users, hasher, slog.New(slog.DiscardHandler))
}

// NewPasswordResetServiceWithLogger creates a PasswordResetService that
// logs reset events.
func NewPasswordResetServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("RESET_NIL_DEPENDENCY").Errorf("logger is required")
	}
	return &PasswordResetService{users: users, hasher: hasher, logger: logger, now: time.Now}, nil
}

// Issue generates a reset token for the account with the given email and
// persists it with a 24-hour expiry. When the email matches no account it
// returns "" with a nil error and persists nothing; callers must present
// the same outward response either way so account existence cannot be
// probed. The spent entropy keeps the two paths' cost comparable.
func (s *PasswordResetService) Issue(ctx context.Context, email string) (string, error) {
	if err := ValidateEmail(email); err != nil {
		return "", err
	}

	token, err := GenerateResetToken()
	if err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	_, err = s.users.FindByUsernameOrEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Outwardly indistinguishable from success.
			return "", nil
		}
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	expiresAt := s.now().Add(ResetTokenExpiry)
	if err := s.users.SetResetToken(ctx, email, token, expiresAt); err != nil {
		return "", oops.Code("RESET_ISSUE_FAILED").
			With("operation", "set reset token").
			Wrap(err)
	}

	s.logger.Info("reset token issued", "email", email, "expires_at", expiresAt)
	return token, nil
}

// Validate checks that a token resolves to a user and has not expired.
// Used by the reset form before asking for a new password.
func (s *PasswordResetService) Validate(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	_, err := s.users.FindByValidResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return oops.Code("RESET_VALIDATE_FAILED").
			With("operation", "find by reset token").
			Wrap(err)
	}
	return nil
}

// Redeem sets a new password for the user holding a valid token. The
// password update and token clearing are a single storage step, so there
// is no state where the new password is set but the token still redeems:
// a second Redeem with the same token fails with ErrInvalidOrExpiredToken.
func (s *PasswordResetService) Redeem(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return oops.Code("RESET_MISSING_FIELDS").Errorf("token and new password are required")
	}
	if len(newPassword) < MinPasswordLength {
		return oops.Code("AUTH_PASSWORD_TOO_SHORT").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters long", MinPasswordLength)
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	userID, err := s.users.RedeemResetToken(ctx, token, s.now(), newHash)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredToken) || errors.Is(err, ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return oops.Code("RESET_REDEEM_FAILED").
			With("operation", "redeem reset token").
			Wrap(err)
	}

	s.logger.Info("password reset redeemed", "user_id", userID.String())
	return nil
}
