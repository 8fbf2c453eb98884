// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/burrowhq/burrow/internal/auth"
	"github.com/burrowhq/burrow/internal/validate"
	"github.com/burrowhq/burrow/pkg/errutil"
)

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// respondValidation reports field-level validation failures.
func respondValidation(w http.ResponseWriter, errs validate.Errors) {
	respondJSON(w, http.StatusUnprocessableEntity, errorBody{
		Error:  "Validation failed",
		Fields: errs,
	})
}

// respondError maps domain errors to HTTP responses. Unknown errors are
// logged with their chain and reported generically so internals never
// leak to the client.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid username/email or password"})
	case errors.Is(err, auth.ErrDuplicateAccount):
		respondJSON(w, http.StatusConflict, errorBody{Error: "Username or email already exists"})
	case errors.Is(err, auth.ErrIncorrectCurrentPassword):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Current password is incorrect"})
	case errors.Is(err, auth.ErrInvalidOrExpiredToken):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Invalid or expired reset token"})
	case errors.Is(err, auth.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	default:
		errutil.LogError(s.logger.With("method", r.Method, "path", r.URL.Path), "request failed", err)
		respondJSON(w, http.StatusInternalServerError, errorBody{Error: "An error occurred. Please try again later."})
	}
}
