package repository

import (
	"context"
	"fmt"
	"time"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

// ReportRepository aggregates points over assigned actions
type ReportRepository struct {
	db *database.DB
}

func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// GetChildPointsForPeriod sums points x quantity over the child's completed
// actions dated within [start, end]. Penalties may make the total negative.
func (r *ReportRepository) GetChildPointsForPeriod(ctx context.Context, childID int64, start, end time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM(t.points * a.quantity), 0)
		FROM assigned_actions a
		JOIN action_templates t ON t.id = a.action_template_id
		WHERE a.child_id = ? AND a.completed = ? AND a.date >= ? AND a.date <= ?
	`
	var points float64
	if err := r.db.QueryRowContext(ctx, query, childID, true, start.UTC(), end.UTC()).Scan(&points); err != nil {
		return 0, fmt.Errorf("failed to sum child points: %w", err)
	}
	return points, nil
}

// GetChildActionsForPeriod lists every action of the child dated within
// [start, end], completed or not, with totalPoints derived for each.
func (r *ReportRepository) GetChildActionsForPeriod(ctx context.Context, childID int64, start, end time.Time) ([]models.AssignedActionDetail, error) {
	return listAssignedActionDetails(ctx, r.db, ActionFilter{
		ChildID: childID,
		From:    &start,
		To:      &end,
	})
}
