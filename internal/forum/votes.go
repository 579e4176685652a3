package forum

import (
	"context"
	"strings"

	"github.com/klkchan/klkchan/internal/models"
)

func normalizeVoteTarget(targetType string) (string, error) {
	switch t := strings.ToLower(strings.TrimSpace(targetType)); t {
	case models.TargetPost, models.TargetComment:
		return t, nil
	}
	return "", newError(ErrInvalid, "unsupported target_type")
}

// Vote records actor's vote of -1 or 1 on a post or comment, 0 removes it
func (s *Service) Vote(ctx context.Context, actor *models.User, targetType string, targetID int64, value int) (*models.VoteSummary, error) {
	if err := requireActive(actor); err != nil {
		return nil, err
	}
	t, err := normalizeVoteTarget(targetType)
	if err != nil {
		return nil, err
	}
	if value < -1 || value > 1 {
		return nil, newError(ErrInvalid, "value must be -1, 0, or 1")
	}
	summary, err := s.store.ApplyVote(ctx, actor.ID, t, targetID, value)
	if err != nil {
		return nil, storeErr(err, "Target")
	}
	s.invalidate()
	return summary, nil
}

// VoteSummary aggregates votes on a target, userID > 0 includes that user's own vote
func (s *Service) VoteSummary(ctx context.Context, targetType string, targetID, userID int64) (*models.VoteSummary, error) {
	t, err := normalizeVoteTarget(targetType)
	if err != nil {
		return nil, err
	}
	summary, err := s.store.GetVoteSummary(ctx, t, targetID, userID)
	return summary, storeErr(err, "Target")
}
