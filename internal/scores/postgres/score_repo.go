// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Burrow Contributors

// Package postgres implements the scores repository using PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/burrowhq/burrow/internal/scores"
)

// DB is the subset of pgxpool.Pool this repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ScoreRepository implements scores.Repository using PostgreSQL.
type ScoreRepository struct {
	pool DB
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(pool DB) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// Insert appends a score row.
func (r *ScoreRepository) Insert(ctx context.Context, score *scores.Score) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO scores (id, user_id, score, difficulty, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		score.ID.String(),
		score.UserID.String(),
		score.Score,
		score.Difficulty,
		score.CreatedAt,
	)
	if err != nil {
		return oops.Code("SCORE_INSERT_FAILED").
			With("operation", "insert score").
			With("user_id", score.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Top retrieves the highest scores joined with usernames.
func (r *ScoreRepository) Top(ctx context.Context, limit int, difficulty string) ([]scores.LeaderboardEntry, error) {
	var (
		rows pgx.Rows
		err  error
	)

	if difficulty == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT s.id, s.user_id, s.score, s.difficulty, s.created_at, u.username
			FROM scores s
			JOIN users u ON s.user_id = u.id
			ORDER BY s.score DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT s.id, s.user_id, s.score, s.difficulty, s.created_at, u.username
			FROM scores s
			JOIN users u ON s.user_id = u.id
			WHERE s.difficulty = $2
			ORDER BY s.score DESC
			LIMIT $1
		`, limit, difficulty)
	}
	if err != nil {
		return nil, oops.Code("SCORE_TOP_FAILED").
			With("operation", "query leaderboard").
			Wrap(err)
	}
	defer rows.Close()

	var entries []scores.LeaderboardEntry
	for rows.Next() {
		var (
			idStr     string
			userIDStr string
			entry     scores.LeaderboardEntry
		)
		if err := rows.Scan(&idStr, &userIDStr, &entry.Score.Score, &entry.Difficulty, &entry.CreatedAt, &entry.Username); err != nil {
			return nil, oops.Code("SCORE_SCAN_FAILED").
				With("operation", "scan leaderboard row").
				Wrap(err)
		}
		if entry.ID, err = parseULID(idStr); err != nil {
			return nil, err
		}
		if entry.UserID, err = parseULID(userIDStr); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("SCORE_ROWS_ERROR").
			With("operation", "iterate leaderboard rows").
			Wrap(err)
	}
	return entries, nil
}

// ByUser retrieves a user's best scores.
func (r *ScoreRepository) ByUser(ctx context.Context, userID ulid.ULID, limit int) ([]scores.Score, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, score, difficulty, created_at
		FROM scores
		WHERE user_id = $1
		ORDER BY score DESC
		LIMIT $2
	`, userID.String(), limit)
	if err != nil {
		return nil, oops.Code("SCORE_BY_USER_FAILED").
			With("operation", "query user scores").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var result []scores.Score
	for rows.Next() {
		var (
			idStr     string
			userIDStr string
			s         scores.Score
			createdAt time.Time
		)
		if err := rows.Scan(&idStr, &userIDStr, &s.Score, &s.Difficulty, &createdAt); err != nil {
			return nil, oops.Code("SCORE_SCAN_FAILED").
				With("operation", "scan score row").
				Wrap(err)
		}
		s.CreatedAt = createdAt
		if s.ID, err = parseULID(idStr); err != nil {
			return nil, err
		}
		if s.UserID, err = parseULID(userIDStr); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("SCORE_ROWS_ERROR").
			With("operation", "iterate score rows").
			Wrap(err)
	}
	return result, nil
}

func parseULID(s string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.Code("SCORE_INVALID_ID").
			With("id", s).
			Wrap(err)
	}
	return id, nil
}

// Compile-time interface check.
var _ scores.Repository = (*ScoreRepository)(nil)
