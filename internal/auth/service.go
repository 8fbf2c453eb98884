// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/burrowhq/burrow/internal/session"
)

// Service orchestrates registration, login, logout, password change, and
// profile update. It owns no state of its own; all persistence goes
// through the injected repositories and session store.
type Service struct {
	users    UserRepository
	sessions session.Store
	hasher   PasswordHasher
	logger   *slog.Logger
}

// NewService creates a Service with a discarded logger.
func NewService(users UserRepository, sessions session.Store, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, sessions, hasher, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a Service that logs auth events.
func NewServiceWithLogger(users UserRepository, sessions session.Store, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("session store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("logger is required")
	}
	return &Service{users: users, sessions: sessions, hasher: hasher, logger: logger}, nil
}

// dummyPasswordHash is verified against when no user matches the login
// identifier, keeping response time consistent with the real-user path.
// This is NOT a credential - it is a fake hash that never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing parity, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a new account. Field shape is expected to have been
// validated by the caller (validate.Validate); presence, email form, and
// password length are re-checked here defensively. Uniqueness is enforced
// by the storage constraint and surfaces as ErrDuplicateAccount.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	if username == "" || email == "" || password == "" {
		return nil, oops.Code("AUTH_MISSING_FIELDS").Errorf("all fields are required")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, oops.Code("AUTH_PASSWORD_TOO_SHORT").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters long", MinPasswordLength)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, email, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			return nil, err
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}

	s.logger.Info("user registered", "user_id", user.ID.String(), "username", user.Username)
	return user, nil
}

// Login verifies credentials and promotes the session. The identifier is
// looked up as an email when it parses as one, otherwise as a username;
// exactly one strategy per call, no fallback. Unknown identifier and
// wrong password return the same ErrInvalidCredentials, and the dummy-hash
// verification keeps the two paths' latency comparable.
//
// On success the session identity is populated and the session identifier
// regenerated through the store before returning. Regeneration lives here
// rather than in callers so the fixation defense cannot be skipped.
func (s *Service) Login(ctx context.Context, sess *session.Session, identifier, password string) (*User, error) {
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, lookupErr := s.users.FindByUsernameOrEmail(ctx, identifier, IsEmailAddress(identifier))

	targetHash := dummyPasswordHash
	if lookupErr == nil {
		targetHash = user.PasswordHash
	} else if !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find user").
			Wrap(lookupErr)
	}

	// Always verify, even against the dummy hash.
	valid := s.hasher.Verify(password, targetHash)

	if lookupErr != nil || !valid {
		s.logger.Info("login rejected", "identifier", identifier)
		return nil, ErrInvalidCredentials
	}

	sess.Authenticate(user.ID, user.Username, user.Email)
	if _, err := s.sessions.Regenerate(ctx, sess); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "regenerate session").
			Wrap(err)
	}

	s.logger.Info("user logged in", "user_id", user.ID.String(), "username", user.Username)
	return user, nil
}

// Logout destroys the session.
func (s *Service) Logout(ctx context.Context, sess *session.Session) error {
	if err := s.sessions.Destroy(ctx, sess.ID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "destroy session").
			Wrap(err)
	}
	sess.UserID = nil
	sess.Username = ""
	sess.Email = ""
	sess.CSRFToken = ""
	sess.Flash = nil
	return nil
}

// ChangePassword re-verifies the current password before accepting the
// new one. A successful change also clears any pending reset token, so an
// outstanding reset link cannot undo it.
func (s *Service) ChangePassword(ctx context.Context, userID ulid.ULID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return oops.Code("AUTH_MISSING_FIELDS").Errorf("all fields are required")
	}
	if len(newPassword) < MinPasswordLength {
		return oops.Code("AUTH_PASSWORD_TOO_SHORT").
			With("min", MinPasswordLength).
			Errorf("new password must be at least %d characters long", MinPasswordLength)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "find user").
			Wrap(err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrIncorrectCurrentPassword
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	// Best effort; the password is already changed.
	_ = s.users.ClearResetToken(ctx, userID) //nolint:errcheck // cleanup only

	s.logger.Info("password changed", "user_id", userID.String())
	return nil
}

// UpdateProfile applies a partial username/email update and refreshes the
// denormalized copies cached in the session.
func (s *Service) UpdateProfile(ctx context.Context, sess *session.Session, fields ProfileUpdate) error {
	if sess.UserID == nil {
		return oops.Code("AUTH_NOT_AUTHENTICATED").Errorf("session is not authenticated")
	}
	if fields.Empty() {
		return oops.Code("AUTH_NO_FIELDS").Errorf("no fields to update")
	}
	if fields.Username != nil {
		if err := ValidateUsername(*fields.Username); err != nil {
			return err
		}
	}
	if fields.Email != nil {
		if err := ValidateEmail(*fields.Email); err != nil {
			return err
		}
	}

	if err := s.users.UpdateFields(ctx, *sess.UserID, fields); err != nil {
		if errors.Is(err, ErrDuplicateAccount) || errors.Is(err, ErrNotFound) {
			return err
		}
		return oops.Code("AUTH_UPDATE_PROFILE_FAILED").
			With("operation", "update fields").
			Wrap(err)
	}

	if fields.Username != nil {
		sess.Username = *fields.Username
	}
	if fields.Email != nil {
		sess.Email = *fields.Email
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return oops.Code("AUTH_UPDATE_PROFILE_FAILED").
			With("operation", "save session").
			Wrap(err)
	}

	s.logger.Info("profile updated", "user_id", sess.UserID.String())
	return nil
}
