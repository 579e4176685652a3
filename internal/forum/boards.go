package forum

import (
	"context"

	"github.com/klkchan/klkchan/internal/config"
	"github.com/klkchan/klkchan/internal/models"
)

// BoardInput creates a board
type BoardInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BoardPatch updates the fields that are set
type BoardPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ListBoards returns boards with id > cursor, ordered by id
func (s *Service) ListBoards(ctx context.Context, cursor int64, limit int) (models.CursorPage[*models.Board], error) {
	limit = ClampLimit(limit, config.DefaultPageLimit)
	if s.cache != nil {
		if boards, next, ok := s.cache.GetBoards(cursor, limit); ok {
			return models.CursorPage[*models.Board]{Items: boards, Limit: limit, NextCursor: next}, nil
		}
	}

	boards, err := s.store.ListBoards(ctx, cursor, limit+1)
	if err != nil {
		return models.CursorPage[*models.Board]{}, err
	}
	p := page(boards, limit, func(b *models.Board) int64 { return b.ID })
	if s.cache != nil {
		s.cache.SetBoards(cursor, limit, p.Items, p.NextCursor)
	}
	return p, nil
}

// GetBoard returns one board
func (s *Service) GetBoard(ctx context.Context, id int64) (*models.Board, error) {
	b, err := s.store.GetBoard(ctx, id)
	return b, storeErr(err, "Board")
}

// CreateBoard validates and stores a new board
func (s *Service) CreateBoard(ctx context.Context, in BoardInput) (*models.Board, error) {
	name, err := requireText("name", in.Name, 1, MaxBoardName)
	if err != nil {
		return nil, err
	}
	desc, err := requireText("description", in.Description, 0, MaxBoardDesc)
	if err != nil {
		return nil, err
	}
	if err := s.checkText(name, desc); err != nil {
		return nil, err
	}

	b := &models.Board{Name: name, Description: desc}
	if err := s.store.InsertBoard(ctx, b); err != nil {
		return nil, storeErr(err, "Board")
	}
	s.invalidate()
	return b, nil
}

// UpdateBoard applies a patch, an empty patch is invalid
func (s *Service) UpdateBoard(ctx context.Context, id int64, patch BoardPatch) (*models.Board, error) {
	if patch.Name == nil && patch.Description == nil {
		return nil, newError(ErrInvalid, "No fields to update")
	}
	b, err := s.store.GetBoard(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Board")
	}
	if patch.Name != nil {
		if b.Name, err = requireText("name", *patch.Name, 1, MaxBoardName); err != nil {
			return nil, err
		}
	}
	if patch.Description != nil {
		if b.Description, err = requireText("description", *patch.Description, 0, MaxBoardDesc); err != nil {
			return nil, err
		}
	}
	if err := s.checkText(b.Name, b.Description); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBoard(ctx, b); err != nil {
		return nil, storeErr(err, "Board")
	}
	s.invalidate()
	return b, nil
}

// DeleteBoard removes a board with all its posts, comments and votes
func (s *Service) DeleteBoard(ctx context.Context, id int64) error {
	if err := s.store.DeleteBoard(ctx, id); err != nil {
		return storeErr(err, "Board")
	}
	s.invalidate()
	return nil
}
