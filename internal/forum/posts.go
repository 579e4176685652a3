package forum

import (
	"context"

	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/models"
)

// PostInput creates a thread
type PostInput struct {
	BoardID int64  `json:"board_id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

// PostPatch updates the fields that are set
type PostPatch struct {
	BoardID *int64  `json:"board_id"`
	Title   *string `json:"title"`
	Body    *string `json:"body"`
}

// ListPosts returns posts of a board with id > cursor, ordered by id.
// Only moderators see removed posts.
func (s *Service) ListPosts(ctx context.Context, viewer *models.User, boardID, cursor int64, limit int) (models.CursorPage[*models.Post], error) {
	limit = ClampLimit(limit, config.DefaultPageLimit)
	if _, err := s.store.GetBoard(ctx, boardID); err != nil {
		return models.CursorPage[*models.Post]{}, storeErr(err, "Board")
	}
	posts, err := s.store.ListPosts(ctx, boardID, cursor, limit+1, models.VisibilityFor(viewer))
	if err != nil {
		return models.CursorPage[*models.Post]{}, err
	}
	return page(posts, limit, func(p *models.Post) int64 { return p.ID }), nil
}

// GetPost returns a post with all its comments ordered by id.
// A post the viewer may not see is reported as not found.
func (s *Service) GetPost(ctx context.Context, viewer *models.User, id int64) (*models.Post, error) {
	vis := models.VisibilityFor(viewer)
	p, err := s.visiblePost(ctx, vis, id)
	if err != nil {
		return nil, err
	}
	return s.withComments(ctx, vis, p)
}

func (s *Service) visiblePost(ctx context.Context, vis models.Visibility, id int64) (*models.Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Post")
	}
	if !vis.CanSeePost(p) {
		return nil, newError(ErrNotFound, "Post not found")
	}
	return p, nil
}

// reloadPost reads a post back after a write by actor
func (s *Service) reloadPost(ctx context.Context, actor *models.User, id int64) (*models.Post, error) {
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Post")
	}
	return s.withComments(ctx, models.VisibilityFor(actor), p)
}

func (s *Service) withComments(ctx context.Context, vis models.Visibility, p *models.Post) (*models.Post, error) {
	comments, err := s.store.ListComments(ctx, p.ID, 0, -1, vis)
	if err != nil {
		return nil, err
	}
	p.Comments = maskRemoved(vis, comments)
	return p, nil
}

// CreatePost validates and stores a new thread for actor
func (s *Service) CreatePost(ctx context.Context, actor *models.User, in PostInput) (*models.Post, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	title, err := requireText("title", in.Title, 1, MaxTitle)
	if err != nil {
		return nil, err
	}
	body, err := requireText("body", in.Body, 1, MaxBody)
	if err != nil {
		return nil, err
	}
	if err := s.checkText(title, body); err != nil {
		return nil, err
	}
	if _, err := s.store.GetBoard(ctx, in.BoardID); err != nil {
		return nil, storeErr(err, "Board")
	}

	p := &models.Post{
		BoardID: in.BoardID,
		UserID:  actor.ID,
		Title:   title,
		Slug:    newSlug(title),
		Body:    body,
	}
	if err := s.store.InsertPost(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate()
	return s.reloadPost(ctx, actor, p.ID)
}

// UpdatePost applies a patch, only the author or a moderator may do so
func (s *Service) UpdatePost(ctx context.Context, actor *models.User, id int64, patch PostPatch) (*models.Post, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Post")
	}
	if !canModify(actor, p.UserID) {
		return nil, newError(ErrForbidden, "Not authorized to modify this post")
	}
	if patch.Title == nil && patch.Body == nil && patch.BoardID == nil {
		return s.reloadPost(ctx, actor, id)
	}
	if patch.Title != nil {
		if p.Title, err = requireText("title", *patch.Title, 1, MaxTitle); err != nil {
			return nil, err
		}
		p.Slug = newSlug(p.Title)
	}
	if patch.Body != nil {
		if p.Body, err = requireText("body", *patch.Body, 1, MaxBody); err != nil {
			return nil, err
		}
	}
	if patch.BoardID != nil && *patch.BoardID != p.BoardID {
		if _, err := s.store.GetBoard(ctx, *patch.BoardID); err != nil {
			return nil, storeErr(err, "Board")
		}
		p.BoardID = *patch.BoardID
	}
	if err := s.checkText(p.Title, p.Body); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePost(ctx, p); err != nil {
		return nil, storeErr(err, "Post")
	}
	s.invalidate()
	return s.reloadPost(ctx, actor, id)
}

// DeletePost removes a post, only the author or a moderator may do so
func (s *Service) DeletePost(ctx context.Context, actor *models.User, id int64) error {
	if actor == nil {
		return newError(ErrForbidden, "login required")
	}
	p, err := s.store.GetPost(ctx, id)
	if err != nil {
		return storeErr(err, "Post")
	}
	if !canModify(actor, p.UserID) {
		return newError(ErrForbidden, "Not authorized to delete this post")
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return storeErr(err, "Post")
	}
	s.invalidate()
	return nil
}
