package forum

import (
	"context"

	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/models"
)

// CommentInput creates a comment
type CommentInput struct {
	PostID int64  `json:"post_id"`
	Body   string `json:"body"`
}

// ListComments returns comments of a post with id > cursor, ordered by id.
// Removed comments keep their place but lose their body unless the viewer moderates.
func (s *Service) ListComments(ctx context.Context, viewer *models.User, postID, cursor int64, limit int) (models.CursorPage[*models.Comment], error) {
	limit = ClampLimit(limit, config.DefaultPageLimit)
	vis := models.VisibilityFor(viewer)
	if _, err := s.visiblePost(ctx, vis, postID); err != nil {
		return models.CursorPage[*models.Comment]{}, err
	}
	comments, err := s.store.ListComments(ctx, postID, cursor, limit+1, vis)
	if err != nil {
		return models.CursorPage[*models.Comment]{}, err
	}
	return page(maskRemoved(vis, comments), limit, func(c *models.Comment) int64 { return c.ID }), nil
}

// maskRemoved blanks the body of removed comments for readers without moderation rights
func maskRemoved(vis models.Visibility, comments []*models.Comment) []*models.Comment {
	if vis.Moderator {
		return comments
	}
	for _, c := range comments {
		if c.Removed {
			c.Body = ""
		}
	}
	return comments
}

// CreateComment stores a comment, locked posts reject new comments
func (s *Service) CreateComment(ctx context.Context, actor *models.User, in CommentInput) (*models.Comment, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	p, err := s.visiblePost(ctx, models.VisibilityFor(actor), in.PostID)
	if err != nil {
		return nil, err
	}
	if p.Locked {
		return nil, newError(ErrLocked, "Post is locked")
	}
	body, err := requireText("body", in.Body, 1, MaxCommentBody)
	if err != nil {
		return nil, err
	}
	if err := s.checkText(body); err != nil {
		return nil, err
	}

	c := &models.Comment{PostID: p.ID, UserID: actor.ID, Author: actor.Username, Body: body}
	if err := s.store.InsertComment(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate()
	return c, nil
}

// DeleteComment removes a comment, only the author or a moderator may do so
func (s *Service) DeleteComment(ctx context.Context, actor *models.User, id int64) error {
	if actor == nil {
		return newError(ErrForbidden, "login required")
	}
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return storeErr(err, "Comment")
	}
	if !canModify(actor, c.UserID) {
		return newError(ErrForbidden, "Not authorized to modify this comment")
	}
	if err := s.store.DeleteComment(ctx, id); err != nil {
		return storeErr(err, "Comment")
	}
	s.invalidate()
	return nil
}
