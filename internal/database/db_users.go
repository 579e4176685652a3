package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/klkchan/klkchan/internal/models"
)

const userColumns = `id, username, email, password_hash, display_name, bio, session_id,
	last_login_ip, session_expires_at, login_attempts, banned, shadowbanned, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.DisplayName, &user.Bio, &user.SessionID, &user.LastLoginIP,
		&user.SessionExpiresAt, &user.LoginAttempts, &user.Banned, &user.Shadowbanned,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// InsertUser creates a user holding the base user role and returns its id
func (db *Database) InsertUser(ctx context.Context, user *models.User) (int64, error) {
	ts := now()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	var id int64
	err := retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO users
			(username, email, password_hash, display_name, bio, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			user.Username, user.Email, user.PasswordHash, user.DisplayName, user.Bio, ts, ts)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role, granted_at) VALUES (?, ?, ?)`,
			id, models.RoleUser, ts)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	user.ID = id
	user.CreatedAt = ts
	user.UpdatedAt = ts
	user.Roles = []string{models.RoleUser}
	return id, nil
}

// GetUserByID returns a user with roles and post ids loaded
func (db *Database) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.getUserWhere(ctx, "id = ?", id)
}

// GetUserByUsername looks a user up case-insensitively
func (db *Database) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.getUserWhere(ctx, "username = ?", username)
}

// GetUserByEmail looks a user up by normalised email
func (db *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return db.getUserWhere(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (db *Database) getUserWhere(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	row := db.mainDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err)
	}
	if user.Roles, err = db.GetUserRoles(ctx, user.ID); err != nil {
		return nil, err
	}
	if user.PostIDs, err = db.getUserPostIDs(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all users ordered by id, roles loaded
func (db *Database) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := retryableQuery(ctx, db.mainDB, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, user := range users {
		if user.Roles, err = db.GetUserRoles(ctx, user.ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (db *Database) getUserPostIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := retryableQuery(ctx, db.mainDB, `SELECT id FROM posts WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateUserPassword stores a new password hash
func (db *Database) UpdateUserPassword(ctx context.Context, userID int64, hash string) error {
	return db.updateUser(ctx, userID, `password_hash = ?`, hash)
}

// SetUserBanned sets or clears the banned flag
func (db *Database) SetUserBanned(ctx context.Context, userID int64, banned bool) error {
	return db.updateUser(ctx, userID, `banned = ?`, banned)
}

// SetUserShadowbanned sets or clears the shadowbanned flag
func (db *Database) SetUserShadowbanned(ctx context.Context, userID int64, shadowbanned bool) error {
	return db.updateUser(ctx, userID, `shadowbanned = ?`, shadowbanned)
}

func (db *Database) updateUser(ctx context.Context, userID int64, set string, arg interface{}) error {
	res, err := retryableExec(ctx, db.mainDB, `UPDATE users SET `+set+`, updated_at = ? WHERE id = ?`, arg, now(), userID)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUserProfile stores username, display name and bio
func (db *Database) UpdateUserProfile(ctx context.Context, user *models.User) error {
	ts := now()
	res, err := retryableExec(ctx, db.mainDB,
		`UPDATE users SET username = ?, display_name = ?, bio = ?, updated_at = ? WHERE id = ?`,
		user.Username, user.DisplayName, user.Bio, ts, user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to update profile of user %d: %w", user.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	user.UpdatedAt = ts
	return nil
}

// DeleteUser removes an account with its roles, posts, comments and votes.
// Scores of content the user voted on are recomputed without those votes.
func (db *Database) DeleteUser(ctx context.Context, id int64) error {
	return retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		// votes left on content that disappears with the user
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE target_type = 'comment' AND target_id IN
			(SELECT id FROM comments WHERE user_id = ? OR post_id IN (SELECT id FROM posts WHERE user_id = ?))`,
			id, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE target_type = 'post' AND target_id IN
			(SELECT id FROM posts WHERE user_id = ?)`, id); err != nil {
			return err
		}

		// the user's own votes, remembered so the scores can be fixed
		var voted []models.Vote
		rows, err := tx.QueryContext(ctx, `SELECT target_type, target_id FROM votes WHERE user_id = ?`, id)
		if err != nil {
			return err
		}
		for rows.Next() {
			var v models.Vote
			if err := rows.Scan(&v.TargetType, &v.TargetID); err != nil {
				rows.Close()
				return err
			}
			voted = append(voted, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM votes WHERE user_id = ?`, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}

		for _, v := range voted {
			table, err := voteTable(v.TargetType)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE `+table+` SET score =
				(SELECT COALESCE(SUM(value), 0) FROM votes WHERE target_type = ? AND target_id = ?) WHERE id = ?`,
				v.TargetType, v.TargetID, v.TargetID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUserRoles returns the user's roles, sorted
func (db *Database) GetUserRoles(ctx context.Context, userID int64) ([]string, error) {
	rows, err := retryableQuery(ctx, db.mainDB, `SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles for user %d: %w", userID, err)
	}
	defer rows.Close()
	roles := []string{}
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// AddUserRole grants a role, granting it twice is a no-op
func (db *Database) AddUserRole(ctx context.Context, userID int64, role string) error {
	_, err := retryableExec(ctx, db.mainDB,
		`INSERT OR IGNORE INTO user_roles (user_id, role, granted_at) VALUES (?, ?, ?)`, userID, role, now())
	if err != nil {
		return fmt.Errorf("failed to grant %s to user %d: %w", role, userID, err)
	}
	return nil
}

// RemoveUserRole revokes a role
func (db *Database) RemoveUserRole(ctx context.Context, userID int64, role string) error {
	_, err := retryableExec(ctx, db.mainDB, `DELETE FROM user_roles WHERE user_id = ? AND role = ?`, userID, role)
	if err != nil {
		return fmt.Errorf("failed to revoke %s from user %d: %w", role, userID, err)
	}
	return nil
}
