package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/klkchan/klkchan/internal/models"
)

const boardSelect = `SELECT b.id, b.name, b.description,
	(SELECT COUNT(*) FROM posts p WHERE p.board_id = b.id AND p.removed = 0),
	b.created_at, b.updated_at
	FROM boards b`

func scanBoard(row rowScanner) (*models.Board, error) {
	var b models.Board
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.PostCount, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBoards returns up to limit boards with id > afterID, ordered by id
func (db *Database) ListBoards(ctx context.Context, afterID int64, limit int) ([]*models.Board, error) {
	rows, err := retryableQuery(ctx, db.mainDB, boardSelect+` WHERE b.id > ? ORDER BY b.id LIMIT ?`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	defer rows.Close()

	boards := []*models.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		boards = append(boards, b)
	}
	return boards, rows.Err()
}

// GetBoard returns a single board
func (db *Database) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	b, err := scanBoard(db.mainDB.QueryRowContext(ctx, boardSelect+` WHERE b.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

// InsertBoard creates a board and fills in its id and timestamps
func (db *Database) InsertBoard(ctx context.Context, board *models.Board) error {
	ts := now()
	res, err := retryableExec(ctx, db.mainDB,
		`INSERT INTO boards (name, description, created_at) VALUES (?, ?, ?)`,
		board.Name, board.Description, ts)
	if err != nil {
		return fmt.Errorf("failed to insert board: %w", err)
	}
	if board.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	board.CreatedAt = ts
	return nil
}

// UpdateBoard stores name and description
func (db *Database) UpdateBoard(ctx context.Context, board *models.Board) error {
	ts := now()
	res, err := retryableExec(ctx, db.mainDB,
		`UPDATE boards SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		board.Name, board.Description, ts, board.ID)
	if err != nil {
		return fmt.Errorf("failed to update board %d: %w", board.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	board.UpdatedAt = &ts
	return nil
}

// DeleteBoard removes a board with its posts, their comments and every vote on them
func (db *Database) DeleteBoard(ctx context.Context, id int64) error {
	return retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE target_type = 'comment' AND target_id IN
			(SELECT c.id FROM comments c JOIN posts p ON p.id = c.post_id WHERE p.board_id = ?)`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE target_type = 'post' AND target_id IN
			(SELECT id FROM posts WHERE board_id = ?)`, id); err != nil {
			return err
		}
		// posts and comments follow via ON DELETE CASCADE
		res, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
