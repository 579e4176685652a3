package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/klkchan/klkchan/internal/models"
)

// voteTable maps a vote target type to its table
func voteTable(targetType string) (string, error) {
	switch targetType {
	case models.TargetPost:
		return "posts", nil
	case models.TargetComment:
		return "comments", nil
	}
	return "", fmt.Errorf("unsupported vote target %q", targetType)
}

// TargetExists reports whether a user, post or comment with id exists
func (db *Database) TargetExists(ctx context.Context, targetType string, id int64) (bool, error) {
	var table string
	switch targetType {
	case models.TargetUser:
		table = "users"
	case models.TargetPost:
		table = "posts"
	case models.TargetComment:
		table = "comments"
	default:
		return false, nil
	}
	var n int
	err := retryableQueryRowScan(ctx, db.mainDB, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`,
		[]interface{}{id}, &n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ApplyVote sets, changes or (value 0) removes a user's vote and recomputes the
// target's stored score in the same transaction
func (db *Database) ApplyVote(ctx context.Context, userID int64, targetType string, targetID int64, value int) (*models.VoteSummary, error) {
	table, err := voteTable(targetType)
	if err != nil {
		return nil, err
	}

	summary := &models.VoteSummary{TargetType: targetType, TargetID: targetID}
	err = retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, targetID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return ErrNotFound
		}

		ts := now()
		if value == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE user_id = ? AND target_type = ? AND target_id = ?`,
				userID, targetType, targetID); err != nil {
				return err
			}
		} else {
			if _, err := tx.ExecContext(ctx, `INSERT INTO votes (user_id, target_type, target_id, value, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (user_id, target_type, target_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				userID, targetType, targetID, value, ts, ts); err != nil {
				return err
			}
		}

		if err := scanVoteStats(tx.QueryRowContext(ctx, voteStatsQuery, targetType, targetID), summary); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE `+table+` SET score = ? WHERE id = ?`, summary.Score, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if value != 0 {
		v := value
		summary.UserVote = &v
	}
	return summary, nil
}

const voteStatsQuery = `SELECT
	COALESCE(SUM(CASE WHEN value > 0 THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN value < 0 THEN 1 ELSE 0 END), 0)
	FROM votes WHERE target_type = ? AND target_id = ?`

func scanVoteStats(row rowScanner, summary *models.VoteSummary) error {
	if err := row.Scan(&summary.Upvotes, &summary.Downvotes); err != nil {
		return err
	}
	summary.Score = summary.Upvotes - summary.Downvotes
	return nil
}

// GetVoteSummary aggregates votes on a target; userID > 0 also loads that user's vote
func (db *Database) GetVoteSummary(ctx context.Context, targetType string, targetID, userID int64) (*models.VoteSummary, error) {
	if _, err := voteTable(targetType); err != nil {
		return nil, err
	}
	ok, err := db.TargetExists(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	summary := &models.VoteSummary{TargetType: targetType, TargetID: targetID}
	if err := scanVoteStats(db.mainDB.QueryRowContext(ctx, voteStatsQuery, targetType, targetID), summary); err != nil {
		return nil, fmt.Errorf("failed to aggregate votes: %w", err)
	}
	if userID > 0 {
		var v int
		err := db.mainDB.QueryRowContext(ctx, `SELECT value FROM votes WHERE user_id = ? AND target_type = ? AND target_id = ?`,
			userID, targetType, targetID).Scan(&v)
		switch {
		case err == nil:
			summary.UserVote = &v
		case err != sql.ErrNoRows:
			return nil, err
		}
	}
	return summary, nil
}
