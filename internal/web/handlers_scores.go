// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package web

import (
	"net/http"
	"strconv"

	"github.com/burrowhq/burrow/internal/scores"
	"github.com/burrowhq/burrow/internal/validate"
)

var saveScoreRules = validate.Rules{
	"score": {validate.Required()},
}

type scoreBody struct {
	ID         string `json:"id"`
	Points     int    `json:"points"`
	Difficulty string `json:"difficulty"`
	CreatedAt  string `json:"created_at"`
}

type leaderboardBody struct {
	scoreBody
	Username string `json:"username"`
}

func (s *Server) handleSaveScore(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "score", "difficulty")
	if errs := validate.Validate(form, saveScoreRules); errs.Any() {
		respondValidation(w, errs)
		return
	}
	points, err := strconv.Atoi(form["score"])
	if err != nil || points < 0 {
		respondValidation(w, validate.Errors{"score": "Score must be a non-negative number"})
		return
	}

	sess := sessionFrom(r.Context())
	score, err := s.scores.Save(r.Context(), *sess.UserID, points, form["difficulty"])
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ScoresSavedTotal.WithLabelValues(score.Difficulty).Inc()
	}
	respondJSON(w, http.StatusCreated, map[string]any{"score": toScoreBody(score)})
}

func (s *Server) handleTopScores(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit")
	difficulty := r.URL.Query().Get("difficulty")

	entries, err := s.scores.Top(r.Context(), limit, difficulty)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	body := make([]leaderboardBody, 0, len(entries))
	for i := range entries {
		body = append(body, leaderboardBody{
			scoreBody: toScoreBody(&entries[i].Score),
			Username:  entries[i].Username,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"scores": body})
}

func (s *Server) handleMyScores(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	list, err := s.scores.ForUser(r.Context(), *sess.UserID, queryInt(r, "limit"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	body := make([]scoreBody, 0, len(list))
	for i := range list {
		body = append(body, toScoreBody(&list[i]))
	}
	respondJSON(w, http.StatusOK, map[string]any{"scores": body})
}

func toScoreBody(sc *scores.Score) scoreBody {
	return scoreBody{
		ID:         sc.ID.String(),
		Points:     sc.Score,
		Difficulty: sc.Difficulty,
		CreatedAt:  sc.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
