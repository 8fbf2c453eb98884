// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

// Package web is the HTTP transport for Burrow. Handlers speak
// form-encoded requests in and JSON out; page rendering belongs to the
// game client. Every state-changing route sits behind the session and
// CSRF middleware.
package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/burrowhq/burrow/internal/auth"
	"github.com/burrowhq/burrow/internal/observability"
	"github.com/burrowhq/burrow/internal/scores"
	"github.com/burrowhq/burrow/internal/session"
)

// SessionCookieName carries the session identifier.
const SessionCookieName = "burrow_session"

// Server wires the services to HTTP routes.
type Server struct {
	sessions     session.Store
	auth         *auth.Service
	resets       *auth.PasswordResetService
	scores       *scores.Service
	metrics      *observability.Metrics
	logger       *slog.Logger
	cookieSecure bool
}

// Options configures a Server.
type Options struct {
	Sessions session.Store
	Auth     *auth.Service
	Resets   *auth.PasswordResetService
	Scores   *scores.Service

	// Metrics is optional; nil disables event counters.
	Metrics *observability.Metrics

	// Logger is optional; nil discards.
	Logger *slog.Logger

	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
}

// NewServer creates a Server.
func NewServer(opts Options) (*Server, error) {
	if opts.Sessions == nil {
		return nil, oops.Code("WEB_NIL_DEPENDENCY").Errorf("session store is required")
	}
	if opts.Auth == nil {
		return nil, oops.Code("WEB_NIL_DEPENDENCY").Errorf("auth service is required")
	}
	if opts.Resets == nil {
		return nil, oops.Code("WEB_NIL_DEPENDENCY").Errorf("reset service is required")
	}
	if opts.Scores == nil {
		return nil, oops.Code("WEB_NIL_DEPENDENCY").Errorf("scores service is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		sessions:     opts.Sessions,
		auth:         opts.Auth,
		resets:       opts.Resets,
		scores:       opts.Scores,
		metrics:      opts.Metrics,
		logger:       logger,
		cookieSecure: opts.CookieSecure,
	}, nil
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.withSession)

	r.Route("/api", func(r chi.Router) {
		// Anyone, no CSRF: reads only.
		r.Get("/csrf", s.handleCSRFToken)
		r.Get("/flash", s.handleFlash)
		r.Get("/scores", s.handleTopScores)
		r.Get("/reset/{token}", s.handleResetCheck)

		// State-changing, CSRF-guarded.
		r.Group(func(r chi.Router) {
			r.Use(s.requireCSRF)
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/reset/request", s.handleResetRequest)
			r.Post("/reset/redeem", s.handleResetRedeem)
		})

		// Logout destroys only the caller's own session; the source
		// leaves it unguarded and so do we.
		r.Post("/logout", s.handleLogout)

		// Authenticated.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/me", s.handleMe)
			r.Get("/scores/mine", s.handleMyScores)

			r.Group(func(r chi.Router) {
				r.Use(s.requireCSRF)
				r.Post("/profile", s.handleUpdateProfile)
				r.Post("/password", s.handleChangePassword)
				r.Post("/scores", s.handleSaveScore)
			})
		})
	})

	return r
}

// setSessionCookie points the client at the (possibly regenerated)
// session identifier.
func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
