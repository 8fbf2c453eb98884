// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

package scores

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service wraps the repository with validation and bounds.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a Service.
func NewService(repo Repository, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, oops.Code("SCORES_NIL_DEPENDENCY").Errorf("score repository is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}, nil
}

// Save records a finished game for a user.
func (s *Service) Save(ctx context.Context, userID ulid.ULID, points int, difficulty string) (*Score, error) {
	score, err := NewScore(userID, points, difficulty)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, score); err != nil {
		return nil, oops.Code("SCORE_SAVE_FAILED").
			With("operation", "insert score").
			With("user_id", userID.String()).
			Wrap(err)
	}

	s.logger.Debug("score saved",
		"user_id", userID.String(),
		"score", points,
		"difficulty", score.Difficulty,
	)
	return score, nil
}

// Top returns the leaderboard, optionally filtered by difficulty.
func (s *Service) Top(ctx context.Context, limit int, difficulty string) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	entries, err := s.repo.Top(ctx, limit, difficulty)
	if err != nil {
		return nil, oops.Code("SCORE_TOP_FAILED").
			With("operation", "query leaderboard").
			Wrap(err)
	}
	return entries, nil
}

// ForUser returns a user's best scores.
func (s *Service) ForUser(ctx context.Context, userID ulid.ULID, limit int) ([]Score, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	rows, err := s.repo.ByUser(ctx, userID, limit)
	if err != nil {
		return nil, oops.Code("SCORE_BY_USER_FAILED").
			With("operation", "query user scores").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return rows, nil
}
