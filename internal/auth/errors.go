// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package auth

import "errors"

// Sentinel errors for the business-rule failures the transport layer is
// allowed to surface to users. Anything else that escapes this package is
// treated as a storage failure and rendered generically.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials is returned for both unknown-identifier and
	// wrong-password logins so the two cases cannot be told apart.
	ErrInvalidCredentials = errors.New("invalid username/email or password")

	// ErrDuplicateAccount is returned when a username or email is taken.
	ErrDuplicateAccount = errors.New("username or email already exists")

	// ErrIncorrectCurrentPassword is returned when a password change fails
	// re-verification of the current password.
	ErrIncorrectCurrentPassword = errors.New("current password is incorrect")

	// ErrInvalidOrExpiredToken is returned when a reset token does not
	// resolve to a user or its expiry has passed.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired reset token")
)
