// Package forum implements the board, thread, vote, moderation and account rules
// on top of the sqlite store.
package forum

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/klkchan/klkchan/internal/cache"
	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/models"
	"github.com/klkchan/klkchan/internal/moderation"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Store is the persistence the service needs, implemented by *database.Database
type Store interface {
	ListBoards(ctx context.Context, afterID int64, limit int) ([]*models.Board, error)
	GetBoard(ctx context.Context, id int64) (*models.Board, error)
	InsertBoard(ctx context.Context, board *models.Board) error
	UpdateBoard(ctx context.Context, board *models.Board) error
	DeleteBoard(ctx context.Context, id int64) error

	ListPosts(ctx context.Context, boardID, afterID int64, limit int, vis models.Visibility) ([]*models.Post, error)
	ListRecentPosts(ctx context.Context, max int) ([]*models.Post, error)
	ListStickyPosts(ctx context.Context) ([]*models.Post, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	InsertPost(ctx context.Context, post *models.Post) error
	UpdatePost(ctx context.Context, post *models.Post) error
	SetPostFlag(ctx context.Context, id int64, flag string, value bool) error
	DeletePost(ctx context.Context, id int64) error

	ListComments(ctx context.Context, postID, afterID int64, limit int, vis models.Visibility) ([]*models.Comment, error)
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	InsertComment(ctx context.Context, comment *models.Comment) error
	SetCommentRemoved(ctx context.Context, id int64, removed bool) error
	DeleteComment(ctx context.Context, id int64) error

	TargetExists(ctx context.Context, targetType string, id int64) (bool, error)
	ApplyVote(ctx context.Context, userID int64, targetType string, targetID int64, value int) (*models.VoteSummary, error)
	GetVoteSummary(ctx context.Context, targetType string, targetID, userID int64) (*models.VoteSummary, error)

	InsertUser(ctx context.Context, user *models.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUserPassword(ctx context.Context, userID int64, hash string) error
	UpdateUserProfile(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	SetUserBanned(ctx context.Context, userID int64, banned bool) error
	SetUserShadowbanned(ctx context.Context, userID int64, shadowbanned bool) error
	AddUserRole(ctx context.Context, userID int64, role string) error
	RemoveUserRole(ctx context.Context, userID int64, role string) error
	IncrementLoginAttempts(ctx context.Context, userID int64) error
	ResetLoginAttempts(ctx context.Context, userID int64) error
	IsUserLockedOut(ctx context.Context, userID int64) (bool, error)

	InsertReport(ctx context.Context, r *models.Report) error
	ListReports(ctx context.Context, status string) ([]*models.Report, error)
	CloseReport(ctx context.Context, id, moderatorID int64, resolution string) error
	InsertModerationAction(ctx context.Context, a *models.ModerationAction) error
	ListModerationActions(ctx context.Context, limit int) ([]*models.ModerationAction, error)
}

// Field limits
const (
	MaxBoardName   = 100
	MaxBoardDesc   = 500
	MaxTitle       = 100
	MaxBody        = 40000
	MaxCommentBody = 10000
	MinReason      = 3
	MaxReason      = 280
	MaxDisplayName = 50
	MaxBio         = 500

	// how many recent posts are ranked for the popular list
	popularCandidates = 500
)

// Service implements the forum rules
type Service struct {
	store  Store
	filter *moderation.Filter
	cache  *cache.ListingCache

	Now func() time.Time
}

// NewService creates the service. filter and lc may be nil.
func NewService(store Store, filter *moderation.Filter, lc *cache.ListingCache) *Service {
	return &Service{
		store:  store,
		filter: filter,
		cache:  lc,
		Now:    time.Now,
	}
}

// invalidate drops cached listings after a write
func (s *Service) invalidate() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// checkText runs the banned-words filter over user supplied text
func (s *Service) checkText(texts ...string) error {
	if err := s.filter.Check(texts...); err != nil {
		return &Error{Kind: ErrBannedWords, Detail: ErrBannedWords.Error()}
	}
	return nil
}

// ClampLimit applies the default page size and the upper bound
func ClampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > config.MaxPageLimit {
		return config.MaxPageLimit
	}
	return limit
}

// page trims a limit+1 result to limit and computes the next cursor
func page[T any](items []T, limit int, id func(T) int64) models.CursorPage[T] {
	p := models.CursorPage[T]{Items: items, Limit: limit}
	if len(items) > limit {
		p.Items = items[:limit]
		p.NextCursor = id(p.Items[limit-1])
	}
	return p
}

func requireText(field, value string, min, max int) (string, error) {
	value = strings.TrimSpace(value)
	n := utf8.RuneCountInString(value)
	if n < min {
		if min <= 1 {
			return "", newError(ErrInvalid, "%s is required", field)
		}
		return "", newError(ErrInvalid, "%s must be at least %d characters", field, min)
	}
	if n > max {
		return "", newError(ErrInvalid, "%s must be at most %d characters", field, max)
	}
	return value, nil
}

// canModify reports whether actor owns the content or moderates
func canModify(actor *models.User, ownerID int64) bool {
	return actor != nil && (actor.ID == ownerID || actor.IsPrivileged())
}

func requireActive(actor *models.User) error {
	if actor == nil {
		return newError(ErrForbidden, "login required")
	}
	if actor.Banned {
		return newError(ErrForbidden, "account is banned")
	}
	return nil
}

// Slugify lowercases, strips accents and joins alphanumeric runs with dashes
func Slugify(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	plain, _, err := transform.String(t, strings.ToLower(title))
	if err != nil {
		plain = strings.ToLower(title)
	}
	var b strings.Builder
	dash := false
	for _, r := range plain {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		slug = "post"
	}
	return slug
}

// newSlug appends six hex digits of a random uuid to the title slug
func newSlug(title string) string {
	return Slugify(title) + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

func logErr(op string, err error) {
	if err != nil {
		log.Printf("[FORUM] %s: %v", op, err)
	}
}
