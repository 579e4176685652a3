package database

import (
	"context"
	"fmt"

	"github.com/klkchan/klkchan/internal/models"
)

// Report statuses
const (
	ReportPending = "pending"
	ReportClosed  = "closed"
)

const reportColumns = `id, reporter_id, target_type, target_id, reason, status, invalid_target,
	resolution, closed_by, closed_at, created_at`

func scanReport(row rowScanner) (*models.Report, error) {
	var r models.Report
	err := row.Scan(&r.ID, &r.ReporterID, &r.TargetType, &r.TargetID, &r.Reason, &r.Status,
		&r.InvalidTarget, &r.Resolution, &r.ClosedBy, &r.ClosedAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// InsertReport stores a pending report and fills in its id and timestamp
func (db *Database) InsertReport(ctx context.Context, r *models.Report) error {
	ts := now()
	if r.Status == "" {
		r.Status = ReportPending
	}
	res, err := retryableExec(ctx, db.mainDB, `INSERT INTO reports
		(reporter_id, target_type, target_id, reason, status, invalid_target, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ReporterID, r.TargetType, r.TargetID, r.Reason, r.Status, r.InvalidTarget, ts)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	r.CreatedAt = ts
	return nil
}

// GetReport returns a single report
func (db *Database) GetReport(ctx context.Context, id int64) (*models.Report, error) {
	r, err := scanReport(db.mainDB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

// ListReports returns reports with the given status, or all when status is empty
func (db *Database) ListReports(ctx context.Context, status string) ([]*models.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	rows, err := retryableQuery(ctx, db.mainDB, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []*models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// CloseReport marks a report closed with the resolving action
func (db *Database) CloseReport(ctx context.Context, id, moderatorID int64, resolution string) error {
	res, err := retryableExec(ctx, db.mainDB, `UPDATE reports SET
		status = ?, resolution = ?, closed_by = ?, closed_at = ? WHERE id = ?`,
		ReportClosed, resolution, moderatorID, now(), id)
	if err != nil {
		return fmt.Errorf("failed to close report %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertModerationAction appends to the moderation log
func (db *Database) InsertModerationAction(ctx context.Context, a *models.ModerationAction) error {
	ts := now()
	res, err := retryableExec(ctx, db.mainDB, `INSERT INTO moderation_actions
		(moderator_id, target_type, target_id, action, reason, applied, error, report_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ModeratorID, a.TargetType, a.TargetID, a.Action, a.Reason, a.Applied, a.Error, a.ReportID, ts)
	if err != nil {
		return fmt.Errorf("failed to log moderation action: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	a.CreatedAt = ts
	return nil
}

// ListModerationActions returns the newest limit log entries, newest first
func (db *Database) ListModerationActions(ctx context.Context, limit int) ([]*models.ModerationAction, error) {
	rows, err := retryableQuery(ctx, db.mainDB, `SELECT id, moderator_id, target_type, target_id, action,
		reason, applied, error, report_id, created_at
		FROM moderation_actions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list moderation actions: %w", err)
	}
	defer rows.Close()

	actions := []*models.ModerationAction{}
	for rows.Next() {
		var a models.ModerationAction
		if err := rows.Scan(&a.ID, &a.ModeratorID, &a.TargetType, &a.TargetID, &a.Action,
			&a.Reason, &a.Applied, &a.Error, &a.ReportID, &a.CreatedAt); err != nil {
			return nil, err
		}
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}
