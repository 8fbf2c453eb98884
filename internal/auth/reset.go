// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// Reset token configuration.
const (
	ResetTokenBytes  = 32             // 32 bytes = 64 hex chars
	ResetTokenExpiry = 24 * time.Hour // 24 hour expiry
)

// GenerateResetToken creates a secure random reset token.
func GenerateResetToken() (string, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

// VerifyResetToken compares a candidate token against the stored one in
// constant time. False when either side is empty.
func VerifyResetToken(candidate, stored string) bool {
	if candidate == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1
}
