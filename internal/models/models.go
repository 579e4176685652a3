// Package models defines core data structures for klkchan
package models

import (
	"fmt"
	"strings"
	"time"
)

// Roles a user can hold. RoleUser is implied for every account.
const (
	RoleUser  = "user"
	RoleMod   = "mod"
	RoleAdmin = "admin"
)

// Vote and report target types
const (
	TargetUser    = "user"
	TargetPost    = "post"
	TargetComment = "comment"
)

// Board represents a forum board (category)
type Board struct {
	ID          int64      `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description string     `json:"description" db:"description"`
	PostCount   int        `json:"post_count" db:"post_count"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Post represents a thread opener on a board
type Post struct {
	ID           int64      `json:"id" db:"id"`
	BoardID      int64      `json:"board_id" db:"board_id"`
	BoardName    string     `json:"board_name,omitempty" db:"-"`
	UserID       int64      `json:"user_id" db:"user_id"`
	Author       string     `json:"author,omitempty" db:"-"`
	Title        string     `json:"title" db:"title"`
	Slug         string     `json:"slug" db:"slug"`
	Body         string     `json:"body" db:"body"`
	Score        int        `json:"score" db:"score"`
	CommentCount int        `json:"comment_count" db:"-"`
	Locked       bool       `json:"locked" db:"locked"`
	Sticky       bool       `json:"sticky" db:"sticky"`
	Removed      bool       `json:"removed" db:"removed"`
	Comments     []*Comment `json:"comments,omitempty" db:"-"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	// AuthorShadowbanned hides the post from everyone but its author and moderators
	AuthorShadowbanned bool `json:"-" db:"-"`
}

// PrintAge returns a human-readable time difference from now
func (p *Post) PrintAge() string {
	return printAge(p.CreatedAt)
}

// Comment represents a reply on a post
type Comment struct {
	ID        int64      `json:"id" db:"id"`
	PostID    int64      `json:"post_id" db:"post_id"`
	UserID    int64      `json:"user_id" db:"user_id"`
	Author    string     `json:"author,omitempty" db:"-"`
	Body      string     `json:"body" db:"body"`
	Score     int        `json:"score" db:"score"`
	Removed   bool       `json:"removed" db:"removed"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// PrintAge returns a human-readable time difference from now
func (c *Comment) PrintAge() string {
	return printAge(c.CreatedAt)
}

// Vote is one user's vote on a post or comment
type Vote struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	TargetType string    `json:"target_type" db:"target_type"`
	TargetID   int64     `json:"target_id" db:"target_id"`
	Value      int       `json:"value" db:"value"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// VoteSummary aggregates the votes on one target
type VoteSummary struct {
	TargetType string `json:"target_type"`
	TargetID   int64  `json:"target_id"`
	Score      int    `json:"score"`
	Upvotes    int    `json:"upvotes"`
	Downvotes  int    `json:"downvotes"`
	UserVote   *int   `json:"user_vote"`
}

// User represents a forum account
type User struct {
	ID               int64      `json:"id" db:"id"`
	Username         string     `json:"username" db:"username"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	DisplayName      string     `json:"display_name" db:"display_name"`
	Bio              string     `json:"bio" db:"bio"`
	SessionID        string     `json:"-" db:"session_id"`         // Current web session
	LastLoginIP      string     `json:"-" db:"last_login_ip"`      // IP of last login (for logging only)
	SessionExpiresAt *time.Time `json:"-" db:"session_expires_at"` // Session expiration (sliding)
	LoginAttempts    int        `json:"-" db:"login_attempts"`     // Failed login attempts counter
	Banned           bool       `json:"banned" db:"banned"`
	Shadowbanned     bool       `json:"-" db:"shadowbanned"`
	Roles            []string   `json:"roles" db:"-"` // Loaded from user_roles
	PostIDs          []int64    `json:"posts" db:"-"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the user holds any of the given roles
func (u *User) HasRole(roles ...string) bool {
	if u == nil {
		return false
	}
	for _, have := range u.Roles {
		for _, want := range roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// IsPrivileged reports whether the user may moderate content
func (u *User) IsPrivileged() bool {
	return u.HasRole(RoleMod, RoleAdmin)
}

// Name returns the display name, falling back to the username
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Report is a user complaint about a user, post or comment
type Report struct {
	ID            int64      `json:"id" db:"id"`
	ReporterID    int64      `json:"reporter_id" db:"reporter_id"`
	TargetType    string     `json:"target_type" db:"target_type"`
	TargetID      int64      `json:"target_id" db:"target_id"`
	Reason        string     `json:"reason" db:"reason"`
	Status        string     `json:"status" db:"status"`
	InvalidTarget bool       `json:"invalid_target" db:"invalid_target"`
	Resolution    string     `json:"resolution,omitempty" db:"resolution"`
	ClosedBy      *int64     `json:"closed_by,omitempty" db:"closed_by"`
	ClosedAt      *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// ModerationAction is one entry of the moderation log
type ModerationAction struct {
	ID          int64     `json:"id" db:"id"`
	ModeratorID int64     `json:"moderator_id" db:"moderator_id"`
	TargetType  string    `json:"target_type" db:"target_type"`
	TargetID    int64     `json:"target_id" db:"target_id"`
	Action      string    `json:"action" db:"action"`
	Reason      string    `json:"reason" db:"reason"`
	Applied     bool      `json:"applied" db:"applied"`
	Error       string    `json:"error,omitempty" db:"error"`
	ReportID    *int64    `json:"report_id,omitempty" db:"report_id"`
	CreatedAt   time.Time `json:"ts" db:"created_at"`
}

// Visibility selects the moderated content a reader may see
type Visibility struct {
	Moderator bool  // removed content and shadowbanned authors included
	ViewerID  int64 // shadowbanned authors still see their own content
}

// VisibilityFor returns what u may see, nil is an anonymous reader
func VisibilityFor(u *User) Visibility {
	if u == nil {
		return Visibility{}
	}
	return Visibility{Moderator: u.IsPrivileged(), ViewerID: u.ID}
}

// CanSeePost reports whether the post is visible
func (v Visibility) CanSeePost(p *Post) bool {
	if v.Moderator {
		return true
	}
	if p.Removed {
		return false
	}
	return !p.AuthorShadowbanned || (v.ViewerID > 0 && p.UserID == v.ViewerID)
}

// CursorPage is a keyset-paginated slice of items
type CursorPage[T any] struct {
	Items      []T   `json:"items"`
	Limit      int   `json:"limit"`
	NextCursor int64 `json:"next_cursor,omitempty"`
}

// HasMore reports whether another page follows
func (p *CursorPage[T]) HasMore() bool {
	return p.NextCursor > 0
}

// printAge returns a human-readable time difference from now
func printAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)
	totalDays := int(diff.Hours() / 24)

	if diff < time.Minute {
		return fmt.Sprintf("%d seconds ago", int(diff.Seconds()))
	} else if diff < time.Hour {
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	} else if diff < 24*time.Hour {
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	} else if totalDays < 30 {
		return fmt.Sprintf("%d days ago", totalDays)
	}
	return t.Format("2006-01-02")
}
