// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

// Package auth provides the authentication core for Burrow.
//
// # Domain Types
//
// User is the persisted account record. It is created through NewUser,
// which validates the username, email, and password hash. Direct struct
// initialization bypasses validation and may create invalid state;
// repository implementations receive pre-validated values.
//
// # Services
//
// Service types coordinate domain operations:
//   - Service - registration, login, logout, password change, profile update
//   - PasswordResetService - reset-token issuance and redemption
//
// Both are created with New*Service constructors that validate their
// dependencies. Session state is manipulated exclusively through the
// injected session.Store; nothing in this package reaches for globals.
package auth
