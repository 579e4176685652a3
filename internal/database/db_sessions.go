package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/klkchan/klkchan/internal/models"
)

// Session security constants
const (
	SessionIDLength  = 64               // 64 character session ID
	MaxLoginAttempts = 5                // Max failed login attempts
	LoginLockoutTime = 15 * time.Minute // Lockout time after max attempts
)

// SessionTimeout is the sliding session lifetime, cmd/web sets it from the config
var SessionTimeout = 3 * time.Hour

// GenerateSecureSessionID creates a cryptographically secure session ID
func GenerateSecureSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength/2) // hex encoding doubles the length
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure session ID: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// CreateUserSession creates a new session for the user and invalidates any existing session
func (db *Database) CreateUserSession(ctx context.Context, userID int64, remoteIP string) (string, error) {
	sessionID, err := GenerateSecureSessionID()
	if err != nil {
		return "", err
	}

	ts := now()
	expiresAt := ts.Add(SessionTimeout)

	// Update user with new session (this invalidates any existing session)
	query := `UPDATE users SET
		session_id = ?,
		last_login_ip = ?,
		session_expires_at = ?,
		login_attempts = 0,
		updated_at = ?
		WHERE id = ?`

	_, err = retryableExec(ctx, db.mainDB, query, sessionID, remoteIP, expiresAt, ts, userID)
	if err != nil {
		return "", fmt.Errorf("failed to create user session: %w", err)
	}

	return sessionID, nil
}

// ValidateUserSession checks if the session is valid and extends expiration
func (db *Database) ValidateUserSession(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session ID")
	}

	ts := now()
	query := `SELECT ` + userColumns + ` FROM users WHERE session_id = ? AND session_expires_at > ?`
	user, err := scanUser(db.mainDB.QueryRowContext(ctx, query, sessionID, ts))
	if err != nil {
		return nil, fmt.Errorf("invalid or expired session")
	}
	if user.Roles, err = db.GetUserRoles(ctx, user.ID); err != nil {
		return nil, err
	}

	// Extend session expiration (sliding timeout)
	newExpiresAt := ts.Add(SessionTimeout)
	_, err = retryableExec(ctx, db.mainDB, `UPDATE users SET session_expires_at = ? WHERE id = ?`, newExpiresAt, user.ID)
	if err != nil {
		// Log error but don't fail validation
		log.Printf("[DATABASE] Warning: Failed to extend session expiration: %v", err)
	}

	user.SessionExpiresAt = &newExpiresAt
	return user, nil
}

// InvalidateUserSessionBySessionID clears session by session ID
func (db *Database) InvalidateUserSessionBySessionID(ctx context.Context, sessionID string) error {
	query := `UPDATE users SET
		session_id = '',
		session_expires_at = NULL
		WHERE session_id = ?`
	_, err := retryableExec(ctx, db.mainDB, query, sessionID)
	return err
}

// IncrementLoginAttempts increases the failed login counter and stamps the attempt
func (db *Database) IncrementLoginAttempts(ctx context.Context, userID int64) error {
	query := `UPDATE users SET
		login_attempts = login_attempts + 1,
		updated_at = ?
		WHERE id = ?`

	_, err := retryableExec(ctx, db.mainDB, query, now(), userID)
	return err
}

// ResetLoginAttempts clears the failed login counter
func (db *Database) ResetLoginAttempts(ctx context.Context, userID int64) error {
	_, err := retryableExec(ctx, db.mainDB, `UPDATE users SET login_attempts = 0 WHERE id = ?`, userID)
	return err
}

// IsUserLockedOut checks if user is temporarily locked out due to failed attempts
func (db *Database) IsUserLockedOut(ctx context.Context, userID int64) (bool, error) {
	var attempts int
	var updatedAt time.Time
	err := retryableQueryRowScan(ctx, db.mainDB, `SELECT login_attempts, updated_at FROM users WHERE id = ?`,
		[]interface{}{userID}, &attempts, &updatedAt)
	if err != nil {
		return false, notFound(err)
	}

	if attempts < MaxLoginAttempts {
		return false, nil
	}
	if now().Before(updatedAt.Add(LoginLockoutTime)) {
		return true, nil // Still locked out
	}
	// Lockout period expired, reset attempts
	if err := db.ResetLoginAttempts(ctx, userID); err != nil {
		log.Printf("[DATABASE] Failed to reset login attempts for user %d: %v", userID, err)
	}
	return false, nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (db *Database) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	query := `UPDATE users SET
		session_id = '',
		session_expires_at = NULL
		WHERE session_expires_at < ?`

	result, err := retryableExec(ctx, db.mainDB, query, now())
	if err != nil {
		return 0, err
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}
