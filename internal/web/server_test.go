// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/auth"
	"github.com/burrowhq/burrow/internal/auth/mocks"
	"github.com/burrowhq/burrow/internal/scores"
	"github.com/burrowhq/burrow/internal/session"
	"github.com/burrowhq/burrow/internal/web"
)

// env bundles a test server with its collaborators.
type env struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	users    *mocks.MockUserRepository
	hasher   *mocks.MockPasswordHasher
	sessions session.Store
	repo     *fakeScoreRepo
}

type fakeScoreRepo struct {
	inserted []*scores.Score
}

func (f *fakeScoreRepo) Insert(_ context.Context, score *scores.Score) error {
	f.inserted = append(f.inserted, score)
	return nil
}

func (f *fakeScoreRepo) Top(_ context.Context, _ int, _ string) ([]scores.LeaderboardEntry, error) {
	var entries []scores.LeaderboardEntry
	for _, s := range f.inserted {
		entries = append(entries, scores.LeaderboardEntry{Score: *s, Username: "alice"})
	}
	return entries, nil
}

func (f *fakeScoreRepo) ByUser(_ context.Context, _ ulid.ULID, _ int) ([]scores.Score, error) {
	var out []scores.Score
	for _, s := range f.inserted {
		out = append(out, *s)
	}
	return out, nil
}

func newEnv(t *testing.T) *env {
	t.Helper()

	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	store := session.NewMemoryStore(time.Hour)
	repo := &fakeScoreRepo{}

	authSvc, err := auth.NewService(users, store, hasher)
	require.NoError(t, err)
	resetSvc, err := auth.NewPasswordResetService(users, hasher)
	require.NoError(t, err)
	scoresSvc, err := scores.NewService(repo, nil)
	require.NoError(t, err)

	srv, err := web.NewServer(web.Options{
		Sessions: store,
		Auth:     authSvc,
		Resets:   resetSvc,
		Scores:   scoresSvc,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	return &env{
		t:        t,
		server:   ts,
		client:   client,
		users:    users,
		hasher:   hasher,
		sessions: store,
		repo:     repo,
	}
}

func (e *env) get(path string) (*http.Response, map[string]any) {
	e.t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(e.t, err)
	return resp, decodeBody(e.t, resp)
}

func (e *env) postForm(path string, form url.Values, headers map[string]string) (*http.Response, map[string]any) {
	e.t.Helper()
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	return resp, decodeBody(e.t, resp)
}

// csrfToken bootstraps a session (via the cookie jar) and fetches its
// CSRF token, the way a browser client would before any mutation.
func (e *env) csrfToken() string {
	e.t.Helper()
	resp, body := e.get("/api/csrf")
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	token, _ := body["csrf_token"].(string)
	require.NotEmpty(e.t, token)
	return token
}

func (e *env) sessionCookie() *http.Cookie {
	e.t.Helper()
	u, err := url.Parse(e.server.URL)
	require.NoError(e.t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == web.SessionCookieName {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) == 0 {
		return nil
	}
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
