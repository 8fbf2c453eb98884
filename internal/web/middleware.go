// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package web

import (
	"context"
	"net/http"

	"github.com/burrowhq/burrow/internal/session"
)

type ctxKey int

const sessionKey ctxKey = iota

// sessionFrom returns the session attached to the request. It is only
// nil for requests that bypass withSession, which the route tree never
// produces.
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// withSession resolves the caller's session from the cookie, creating a
// fresh anonymous one when the cookie is absent or stale, and attaches
// it to the request context. New identifiers are sent back immediately
// so the client converges on one session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookieName); err == nil {
			id = c.Value
		}
		sess, err := s.sessions.Resolve(r.Context(), id)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if sess.ID != id {
			s.setSessionCookie(w, sess.ID)
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects requests whose session has no authenticated user.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if sess == nil || !sess.Authenticated() {
			respondJSON(w, http.StatusUnauthorized, errorBody{Error: "Authentication required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireCSRF verifies the double-submit token before any request state
// is touched. The token is read from the X-CSRF-Token header first,
// then from the csrf_token form field.
func (s *Server) requireCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		candidate := r.Header.Get("X-CSRF-Token")
		if candidate == "" {
			if err := r.ParseForm(); err == nil {
				candidate = r.PostFormValue("csrf_token")
			}
		}
		if sess == nil || !s.sessions.VerifyCSRF(sess, candidate) {
			if s.metrics != nil {
				s.metrics.CSRFRejectionsTotal.Inc()
			}
			respondJSON(w, http.StatusForbidden, errorBody{Error: "CSRF token validation failed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
