package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/klkchan/klkchan/internal/models"
)

const commentSelect = `SELECT c.id, c.post_id, c.user_id, u.username, c.body, c.score, c.removed,
	c.created_at, c.updated_at
	FROM comments c
	JOIN users u ON u.id = c.user_id`

func scanComment(row rowScanner) (*models.Comment, error) {
	var c models.Comment
	err := row.Scan(&c.ID, &c.PostID, &c.UserID, &c.Author, &c.Body, &c.Score, &c.Removed,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns up to limit comments of a post with id > afterID, ordered by id.
// Comments of shadowbanned authors are only returned to moderators and the author.
// Removed comments stay in the list so threads keep their shape.
func (db *Database) ListComments(ctx context.Context, postID, afterID int64, limit int, vis models.Visibility) ([]*models.Comment, error) {
	rows, err := retryableQuery(ctx, db.mainDB,
		commentSelect+` WHERE c.post_id = ? AND c.id > ? AND (? OR u.shadowbanned = 0 OR c.user_id = ?)
		ORDER BY c.id LIMIT ?`, postID, afterID, vis.Moderator, vis.ViewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetComment returns a single comment
func (db *Database) GetComment(ctx context.Context, id int64) (*models.Comment, error) {
	c, err := scanComment(db.mainDB.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// InsertComment creates a comment and fills in its id and timestamps
func (db *Database) InsertComment(ctx context.Context, comment *models.Comment) error {
	ts := now()
	res, err := retryableExec(ctx, db.mainDB,
		`INSERT INTO comments (post_id, user_id, body, created_at) VALUES (?, ?, ?, ?)`,
		comment.PostID, comment.UserID, comment.Body, ts)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	if comment.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	comment.CreatedAt = ts
	return nil
}

// SetCommentRemoved hides or restores a comment
func (db *Database) SetCommentRemoved(ctx context.Context, id int64, removed bool) error {
	res, err := retryableExec(ctx, db.mainDB, `UPDATE comments SET removed = ? WHERE id = ?`, removed, id)
	if err != nil {
		return fmt.Errorf("failed to update comment %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteComment removes a comment and its votes
func (db *Database) DeleteComment(ctx context.Context, id int64) error {
	return retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE target_type = 'comment' AND target_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
