// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

// Package scores records per-user game results and serves the
// leaderboard. Score rows are append-only; nothing here updates or
// deletes them.
package scores

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Difficulty levels accepted from the game client.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// DefaultTopLimit bounds leaderboard queries when the caller passes no
// limit.
const DefaultTopLimit = 10

// Score is one finished game.
type Score struct {
	ID         ulid.ULID
	UserID     ulid.ULID
	Score      int
	Difficulty string
	CreatedAt  time.Time
}

// LeaderboardEntry is a score joined with the player's username.
type LeaderboardEntry struct {
	Score
	Username string
}

// NewScore creates a validated Score. Unknown difficulties fall back to
// medium, matching the game client's default.
func NewScore(userID ulid.ULID, points int, difficulty string) (*Score, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SCORE_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if points < 0 {
		return nil, oops.Code("SCORE_INVALID_VALUE").
			With("score", points).
			Errorf("score cannot be negative")
	}

	switch difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		difficulty = DifficultyMedium
	}

	return &Score{
		ID:         ulid.Make(),
		UserID:     userID,
		Score:      points,
		Difficulty: difficulty,
		CreatedAt:  time.Now(),
	}, nil
}

// Repository manages score persistence.
type Repository interface {
	// Insert appends a score row.
	Insert(ctx context.Context, score *Score) error

	// Top retrieves the highest scores with usernames, optionally
	// filtered by difficulty ("" = all).
	Top(ctx context.Context, limit int, difficulty string) ([]LeaderboardEntry, error)

	// ByUser retrieves a user's best scores.
	ByUser(ctx context.Context, userID ulid.ULID, limit int) ([]Score, error)
}
