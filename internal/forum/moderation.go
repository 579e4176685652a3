package forum

import (
	"context"
	"strings"

	"github.com/klkchan/klkchan/internal/database"
	"github.com/klkchan/klkchan/internal/models"
)

// Moderation actions
const (
	ActionRemove    = "remove"
	ActionApprove   = "approve"
	ActionLock      = "lock"
	ActionSticky    = "sticky"
	ActionBanUser   = "ban_user"
	ActionShadowban = "shadowban"
)

// ActionRequest asks to apply a moderation action to a target
type ActionRequest struct {
	TargetType string `json:"target_type"`
	TargetID   int64  `json:"target_id"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
	ReportID   *int64 `json:"report_id,omitempty"`
}

// ActionResult tells whether an action took effect; Error is a stable code otherwise
type ActionResult struct {
	Applied bool   `json:"applied"`
	Error   string `json:"error,omitempty"`
}

func normalizeReportTarget(targetType string) (string, error) {
	switch t := strings.ToLower(strings.TrimSpace(targetType)); t {
	case models.TargetUser, models.TargetPost, models.TargetComment:
		return t, nil
	}
	return "", newError(ErrInvalid, "target_type must be user, post or comment")
}

// Report files a complaint; reports on missing targets are kept and flagged
func (s *Service) Report(ctx context.Context, reporter *models.User, targetType string, targetID int64, reason string) (*models.Report, error) {
	if err := requireActive(reporter); err != nil {
		return nil, err
	}
	t, err := normalizeReportTarget(targetType)
	if err != nil {
		return nil, err
	}
	if targetID < 1 {
		return nil, newError(ErrInvalid, "target_id must be positive")
	}
	reason, err = requireText("reason", reason, MinReason, MaxReason)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.TargetExists(ctx, t, targetID)
	if err != nil {
		return nil, err
	}

	r := &models.Report{
		ReporterID:    reporter.ID,
		TargetType:    t,
		TargetID:      targetID,
		Reason:        reason,
		Status:        database.ReportPending,
		InvalidTarget: !exists,
	}
	if err := s.store.InsertReport(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Queue lists reports by status, empty status lists all
func (s *Service) Queue(ctx context.Context, status string) ([]*models.Report, error) {
	switch status {
	case "", database.ReportPending, database.ReportClosed:
	default:
		return nil, newError(ErrInvalid, "unknown report status %q", status)
	}
	return s.store.ListReports(ctx, status)
}

// ActionLog returns the newest moderation log entries
func (s *Service) ActionLog(ctx context.Context, limit int) ([]*models.ModerationAction, error) {
	return s.store.ListModerationActions(ctx, ClampLimit(limit, 50))
}

// ApplyAction applies a moderation action. Every attempt lands in the action log.
// Rejections (unknown action, wrong target, missing target) come back as
// Applied=false with an error code, not as a Go error.
func (s *Service) ApplyAction(ctx context.Context, moderator *models.User, req ActionRequest) (*ActionResult, error) {
	if moderator == nil || !moderator.IsPrivileged() {
		return nil, newError(ErrForbidden, "moderator role required")
	}
	t, err := normalizeReportTarget(req.TargetType)
	if err != nil {
		return nil, err
	}
	act := strings.ToLower(strings.TrimSpace(req.Action))

	result, err := s.apply(ctx, t, req.TargetID, act)
	if err != nil {
		return nil, err
	}

	if result.Applied && req.ReportID != nil {
		if err := s.store.CloseReport(ctx, *req.ReportID, moderator.ID, act); err != nil {
			logErr("close report", err)
		}
	}

	entry := &models.ModerationAction{
		ModeratorID: moderator.ID,
		TargetType:  t,
		TargetID:    req.TargetID,
		Action:      act,
		Reason:      strings.TrimSpace(req.Reason),
		Applied:     result.Applied,
		Error:       result.Error,
		ReportID:    req.ReportID,
	}
	if err := s.store.InsertModerationAction(ctx, entry); err != nil {
		return nil, err
	}
	if result.Applied {
		s.invalidate()
	}
	return result, nil
}

func (s *Service) apply(ctx context.Context, targetType string, targetID int64, act string) (*ActionResult, error) {
	switch act {
	case ActionRemove, ActionApprove, ActionLock, ActionSticky, ActionBanUser, ActionShadowban:
	default:
		return &ActionResult{Error: "unknown_action"}, nil
	}

	exists, err := s.store.TargetExists(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}
	if act != ActionApprove && !exists {
		return &ActionResult{Error: "target_not_found"}, nil
	}

	switch act {
	case ActionRemove:
		switch targetType {
		case models.TargetPost:
			if err := s.store.SetPostFlag(ctx, targetID, "removed", true); err != nil {
				return nil, err
			}
			err = s.store.SetPostFlag(ctx, targetID, "locked", true)
		case models.TargetComment:
			err = s.store.SetCommentRemoved(ctx, targetID, true)
		case models.TargetUser:
			err = s.store.SetUserBanned(ctx, targetID, true)
		}
	case ActionApprove:
		// dismisses the report, content stays as it is
	case ActionLock:
		if targetType != models.TargetPost {
			return &ActionResult{Error: "lock_only_for_posts"}, nil
		}
		err = s.store.SetPostFlag(ctx, targetID, "locked", true)
	case ActionSticky:
		if targetType != models.TargetPost {
			return &ActionResult{Error: "sticky_only_for_posts"}, nil
		}
		err = s.store.SetPostFlag(ctx, targetID, "sticky", true)
	case ActionBanUser:
		if targetType != models.TargetUser {
			return &ActionResult{Error: "ban_only_for_users"}, nil
		}
		err = s.store.SetUserBanned(ctx, targetID, true)
	case ActionShadowban:
		if targetType != models.TargetUser {
			return &ActionResult{Error: "shadowban_only_for_users"}, nil
		}
		err = s.store.SetUserShadowbanned(ctx, targetID, true)
	}
	if err != nil {
		return nil, err
	}
	return &ActionResult{Applied: true}, nil
}
