package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/klkchan/klkchan/internal/models"
)

const postSelect = `SELECT p.id, p.board_id, b.name, p.user_id, u.username, p.title, p.slug, p.body,
	p.score, (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id AND c.removed = 0),
	p.locked, p.sticky, p.removed, p.created_at, p.updated_at, u.shadowbanned
	FROM posts p
	JOIN boards b ON b.id = p.board_id
	JOIN users u ON u.id = p.user_id`

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.BoardID, &p.BoardName, &p.UserID, &p.Author, &p.Title, &p.Slug, &p.Body,
		&p.Score, &p.CommentCount, &p.Locked, &p.Sticky, &p.Removed, &p.CreatedAt, &p.UpdatedAt, &p.AuthorShadowbanned)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *Database) queryPosts(ctx context.Context, query string, args ...interface{}) ([]*models.Post, error) {
	rows, err := retryableQuery(ctx, db.mainDB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// postVisible restricts a post query to what vis may see, args: Moderator, ViewerID
const postVisible = ` AND (? OR (p.removed = 0 AND (u.shadowbanned = 0 OR p.user_id = ?)))`

// publicPost is the filter for listings shared by every reader
const publicPost = ` p.removed = 0 AND u.shadowbanned = 0`

// ListPosts returns up to limit posts of a board with id > afterID, ordered by id.
// Removed posts and shadowbanned authors are left out unless vis allows them.
func (db *Database) ListPosts(ctx context.Context, boardID, afterID int64, limit int, vis models.Visibility) ([]*models.Post, error) {
	return db.queryPosts(ctx, postSelect+` WHERE p.board_id = ? AND p.id > ?`+postVisible+` ORDER BY p.id LIMIT ?`,
		boardID, afterID, vis.Moderator, vis.ViewerID, limit)
}

// ListRecentPosts returns the newest max public posts, candidates for ranking
func (db *Database) ListRecentPosts(ctx context.Context, max int) ([]*models.Post, error) {
	return db.queryPosts(ctx, postSelect+` WHERE`+publicPost+` ORDER BY p.id DESC LIMIT ?`, max)
}

// ListStickyPosts returns every public sticky post, newest first
func (db *Database) ListStickyPosts(ctx context.Context) ([]*models.Post, error) {
	return db.queryPosts(ctx, postSelect+` WHERE p.sticky = 1 AND`+publicPost+` ORDER BY p.id DESC`)
}

// GetPost returns a single post without comments
func (db *Database) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	p, err := scanPost(db.mainDB.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// InsertPost creates a post and fills in its id and timestamps
func (db *Database) InsertPost(ctx context.Context, post *models.Post) error {
	ts := now()
	res, err := retryableExec(ctx, db.mainDB, `INSERT INTO posts
		(board_id, user_id, title, slug, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		post.BoardID, post.UserID, post.Title, post.Slug, post.Body, ts)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	if post.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	post.CreatedAt = ts
	return nil
}

// UpdatePost stores title, body, slug and board
func (db *Database) UpdatePost(ctx context.Context, post *models.Post) error {
	ts := now()
	res, err := retryableExec(ctx, db.mainDB,
		`UPDATE posts SET board_id = ?, title = ?, slug = ?, body = ?, updated_at = ? WHERE id = ?`,
		post.BoardID, post.Title, post.Slug, post.Body, ts, post.ID)
	if err != nil {
		return fmt.Errorf("failed to update post %d: %w", post.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	post.UpdatedAt = &ts
	return nil
}

// SetPostFlag sets one of the moderation flags locked, sticky or removed
func (db *Database) SetPostFlag(ctx context.Context, id int64, flag string, value bool) error {
	switch flag {
	case "locked", "sticky", "removed":
	default:
		return fmt.Errorf("unknown post flag %q", flag)
	}
	res, err := retryableExec(ctx, db.mainDB, `UPDATE posts SET `+flag+` = ? WHERE id = ?`, value, id)
	if err != nil {
		return fmt.Errorf("failed to set %s on post %d: %w", flag, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePost removes a post, its comments and every vote on them
func (db *Database) DeletePost(ctx context.Context, id int64) error {
	return retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE target_type = 'comment' AND target_id IN
			(SELECT id FROM comments WHERE post_id = ?)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE target_type = 'post' AND target_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
