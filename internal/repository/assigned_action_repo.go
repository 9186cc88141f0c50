package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

// AssignedActionRepository handles database operations for assigned actions
type AssignedActionRepository struct {
	db *database.DB
}

func NewAssignedActionRepository(db *database.DB) *AssignedActionRepository {
	return &AssignedActionRepository{db: db}
}

func insertAssignedAction(ctx context.Context, q database.DBTX, action *models.AssignedAction) error {
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}
	if action.Quantity == 0 {
		action.Quantity = 1
	}
	query := `
		INSERT INTO assigned_actions (action_template_id, child_id, assigned_by, quantity, description, date, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := q.ExecReturningID(ctx, query,
		action.ActionTemplateID,
		action.ChildID,
		nullable(action.AssignedBy),
		action.Quantity,
		nullable(action.Description),
		action.Date.UTC(),
		action.Completed,
		action.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create assigned action: %w", err)
	}
	action.ID = id
	return nil
}

// CreateAssignedAction inserts an assigned action and sets its ID
func (r *AssignedActionRepository) CreateAssignedAction(ctx context.Context, action *models.AssignedAction) error {
	return insertAssignedAction(ctx, r.db, action)
}

// GetAssignedAction retrieves an assigned action by ID
func (r *AssignedActionRepository) GetAssignedAction(ctx context.Context, id int64) (*models.AssignedAction, error) {
	query := "SELECT " + assignedActionColumns + " FROM assigned_actions WHERE id = ?"
	action, err := scanAssignedAction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assigned action: %w", err)
	}
	return action, nil
}

// UpdateAssignedAction merges the supplied fields into the action
func (r *AssignedActionRepository) UpdateAssignedAction(ctx context.Context, id int64, patch models.AssignedActionPatch) (*models.AssignedAction, error) {
	var (
		sets []string
		args []interface{}
	)
	if patch.ActionTemplateID != nil {
		sets = append(sets, "action_template_id = ?")
		args = append(args, *patch.ActionTemplateID)
	}
	if patch.ChildID != nil {
		sets = append(sets, "child_id = ?")
		args = append(args, *patch.ChildID)
	}
	if patch.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *patch.Quantity)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullIfEmpty(*patch.Description))
	}
	if patch.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, patch.Date.UTC())
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}

	if err := updateRow(ctx, r.db, "assigned_actions", id, sets, args); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update assigned action: %w", err)
	}
	return r.GetAssignedAction(ctx, id)
}

// DeleteAssignedAction removes an assigned action. Deleting a missing row is a no-op.
func (r *AssignedActionRepository) DeleteAssignedAction(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM assigned_actions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete assigned action: %w", err)
	}
	return nil
}

// ListAssignedActions returns matching actions with their template, child and
// assigning user resolved in a single query, newest date first.
func (r *AssignedActionRepository) ListAssignedActions(ctx context.Context, filter ActionFilter) ([]models.AssignedActionDetail, error) {
	return listAssignedActionDetails(ctx, r.db, filter)
}

func listAssignedActionDetails(ctx context.Context, q database.DBTX, filter ActionFilter) ([]models.AssignedActionDetail, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.FamilyID != 0 {
		where = append(where, "c.family_id = ?")
		args = append(args, filter.FamilyID)
	}
	if filter.ChildID != 0 {
		where = append(where, "a.child_id = ?")
		args = append(args, filter.ChildID)
	}
	if filter.From != nil {
		where = append(where, "a.date >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		where = append(where, "a.date <= ?")
		args = append(args, filter.To.UTC())
	}
	if filter.Completed != nil {
		where = append(where, "a.completed = ?")
		args = append(args, *filter.Completed)
	}

	query := "SELECT " +
		prefixColumns("a", assignedActionColumns) + ", " +
		prefixColumns("t", templateColumns) + ", " +
		prefixColumns("c", userColumns) + ", " +
		prefixColumns("b", userColumns) + `
		FROM assigned_actions a
		JOIN action_templates t ON t.id = a.action_template_id
		JOIN users c ON c.id = a.child_id
		LEFT JOIN users b ON b.id = a.assigned_by`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.date DESC, a.id DESC"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned actions: %w", err)
	}
	defer rows.Close()

	details := []models.AssignedActionDetail{}
	for rows.Next() {
		detail, err := scanAssignedActionDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assigned action: %w", err)
		}
		details = append(details, *detail)
	}
	return details, rows.Err()
}

func scanAssignedActionDetail(rows *sql.Rows) (*models.AssignedActionDetail, error) {
	var (
		action      models.AssignedAction
		assignedBy  sql.NullInt64
		description sql.NullString
		template    nullTemplate
		child       nullUser
		assigner    nullUser
	)

	dest := assignedActionDest(&action, &assignedBy, &description)
	dest = append(dest, template.dest()...)
	dest = append(dest, child.dest()...)
	dest = append(dest, assigner.dest()...)
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	action.AssignedBy = int64Ptr(assignedBy)
	action.Description = stringPtr(description)

	t := template.template()
	return &models.AssignedActionDetail{
		AssignedAction: action,
		ActionTemplate: t,
		AssignedByUser: assigner.user(),
		Child:          child.user(),
		TotalPoints:    models.PointsFor(t, action.Quantity),
	}, nil
}
