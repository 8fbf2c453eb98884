// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/burrowhq/burrow/internal/auth"
	"github.com/burrowhq/burrow/internal/validate"
)

var registerRules = validate.Rules{
	"username": {validate.Required(), validate.MinLength(auth.MinUsernameLength), validate.MaxLength(auth.MaxUsernameLength)},
	"email":    {validate.Required(), validate.Email()},
	"password": {validate.Required(), validate.MinLength(auth.MinPasswordLength)},
	"confirm_password": {
		validate.Required(),
		validate.EqualsField("password"),
	},
}

var loginRules = validate.Rules{
	"identifier": {validate.Required()},
	"password":   {validate.Required()},
}

var changePasswordRules = validate.Rules{
	"current_password": {validate.Required()},
	"new_password":     {validate.Required(), validate.MinLength(auth.MinPasswordLength)},
	"confirm_password": {validate.Required(), validate.EqualsField("new_password")},
}

type userBody struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "username", "email", "password", "confirm_password")
	if errs := validate.Validate(form, registerRules); errs.Any() {
		respondValidation(w, errs)
		return
	}

	sess := sessionFrom(r.Context())
	user, err := s.auth.Register(r.Context(), form["username"], form["email"], form["password"])
	if err != nil {
		if s.metrics != nil {
			s.metrics.RegistrationsTotal.WithLabelValues(registrationOutcome(err)).Inc()
		}
		s.respondError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	}
	if err := s.sessions.SetFlash(r.Context(), sess, "success", "Registration successful! You can now login."); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful! You can now login.",
		"user":    userBody{ID: user.ID.String(), Username: user.Username, Email: user.Email},
	})
}

func registrationOutcome(err error) string {
	if errors.Is(err, auth.ErrDuplicateAccount) {
		return "duplicate"
	}
	return "error"
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "identifier", "password")
	if errs := validate.Validate(form, loginRules); errs.Any() {
		respondValidation(w, errs)
		return
	}

	sess := sessionFrom(r.Context())
	user, err := s.auth.Login(r.Context(), sess, form["identifier"], form["password"])
	if err != nil {
		if s.metrics != nil {
			s.metrics.LoginsTotal.WithLabelValues(loginOutcome(err)).Inc()
		}
		s.respondError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}

	// Login regenerated the session identifier; hand the new one back.
	s.setSessionCookie(w, sess.ID)

	if err := s.sessions.SetFlash(r.Context(), sess, "success", "Login successful"); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user": userBody{ID: user.ID.String(), Username: user.Username, Email: user.Email},
	})
}

func loginOutcome(err error) string {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return "invalid_credentials"
	}
	return "error"
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.auth.Logout(r.Context(), sess); err != nil {
		s.respondError(w, r, err)
		return
	}

	// Start a fresh anonymous session so the logout confirmation has
	// somewhere to live.
	fresh, err := s.sessions.Resolve(r.Context(), "")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.sessions.SetFlash(r.Context(), fresh, "success", "You have been logged out"); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.setSessionCookie(w, fresh.ID)
	respondJSON(w, http.StatusOK, map[string]string{"message": "You have been logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	respondJSON(w, http.StatusOK, map[string]any{
		"user": userBody{ID: sess.UserID.String(), Username: sess.Username, Email: sess.Email},
	})
}

func (s *Server) handleFlash(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	flash, err := s.sessions.TakeFlash(r.Context(), sess)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if flash == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"flash": flash})
}

func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	token, err := s.sessions.CSRFToken(r.Context(), sess)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	form := formValues(r, "username", "email")

	// Only submitted fields are validated and updated.
	rules := validate.Rules{}
	var fields auth.ProfileUpdate
	if v, ok := submitted(r, "username"); ok {
		rules["username"] = []validate.Constraint{
			validate.Required(), validate.MinLength(auth.MinUsernameLength), validate.MaxLength(auth.MaxUsernameLength),
		}
		fields.Username = &v
	}
	if v, ok := submitted(r, "email"); ok {
		rules["email"] = []validate.Constraint{validate.Required(), validate.Email()}
		fields.Email = &v
	}
	if fields.Username == nil && fields.Email == nil {
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "Nothing to update"})
		return
	}
	if errs := validate.Validate(form, rules); errs.Any() {
		respondValidation(w, errs)
		return
	}

	if err := s.auth.UpdateProfile(r.Context(), sess, fields); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.sessions.SetFlash(r.Context(), sess, "success", "Profile updated successfully"); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    userBody{ID: sess.UserID.String(), Username: sess.Username, Email: sess.Email},
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "current_password", "new_password", "confirm_password")
	if errs := validate.Validate(form, changePasswordRules); errs.Any() {
		respondValidation(w, errs)
		return
	}

	sess := sessionFrom(r.Context())
	if err := s.auth.ChangePassword(r.Context(), *sess.UserID, form["current_password"], form["new_password"]); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.sessions.SetFlash(r.Context(), sess, "success", "Password changed successfully"); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// formValues gathers the named form fields into the map shape the
// validation engine consumes.
func formValues(r *http.Request, names ...string) map[string]string {
	_ = r.ParseForm()
	form := make(map[string]string, len(names))
	for _, name := range names {
		form[name] = r.PostFormValue(name)
	}
	return form
}

// submitted reports whether a form field was present at all, as opposed
// to present but empty.
func submitted(r *http.Request, name string) (string, bool) {
	_ = r.ParseForm()
	vs, ok := r.PostForm[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}
