// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/burrowhq/burrow/internal/auth"
	"github.com/burrowhq/burrow/internal/validate"
)

var resetRequestRules = validate.Rules{
	"email": {validate.Required(), validate.Email()},
}

var resetRedeemRules = validate.Rules{
	"token":            {validate.Required()},
	"new_password":     {validate.Required(), validate.MinLength(auth.MinPasswordLength)},
	"confirm_password": {validate.Required(), validate.EqualsField("new_password")},
}

// resetRequestMessage is returned whether or not the email is known, so
// the endpoint cannot be used to enumerate accounts.
const resetRequestMessage = "If your email is registered, a password reset link has been generated."

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "email")
	if errs := validate.Validate(form, resetRequestRules); errs.Any() {
		respondValidation(w, errs)
		return
	}

	token, err := s.resets.Issue(r.Context(), form["email"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	body := map[string]string{"message": resetRequestMessage}
	if token != "" {
		// Without an outbound mailer the token is handed straight back
		// so the client can present the reset link itself.
		body["reset_token"] = token
		if s.metrics != nil {
			s.metrics.ResetTokensIssuedTotal.Inc()
		}
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *Server) handleResetCheck(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := s.resets.Validate(r.Context(), token); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) handleResetRedeem(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "token", "new_password", "confirm_password")
	if errs := validate.Validate(form, resetRedeemRules); errs.Any() {
		respondValidation(w, errs)
		return
	}

	if err := s.resets.Redeem(r.Context(), form["token"], form["new_password"]); err != nil {
		s.respondError(w, r, err)
		return
	}

	sess := sessionFrom(r.Context())
	if err := s.sessions.SetFlash(r.Context(), sess, "success", "Password has been reset successfully. You can now login."); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully. You can now login."})
}
