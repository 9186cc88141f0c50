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

// SuggestionRepository handles database operations for action suggestions
type SuggestionRepository struct {
	db *database.DB
}

func NewSuggestionRepository(db *database.DB) *SuggestionRepository {
	return &SuggestionRepository{db: db}
}

func getActionSuggestion(ctx context.Context, q database.DBTX, id int64) (*models.ActionSuggestion, error) {
	query := "SELECT " + suggestionColumns + " FROM action_suggestions WHERE id = ?"
	suggestion, err := scanSuggestion(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action suggestion: %w", err)
	}
	return suggestion, nil
}

// GetActionSuggestion retrieves a suggestion by ID
func (r *SuggestionRepository) GetActionSuggestion(ctx context.Context, id int64) (*models.ActionSuggestion, error) {
	return getActionSuggestion(ctx, r.db, id)
}

// CreateActionSuggestion inserts a pending suggestion and sets its ID
func (r *SuggestionRepository) CreateActionSuggestion(ctx context.Context, suggestion *models.ActionSuggestion) error {
	if suggestion.CreatedAt.IsZero() {
		suggestion.CreatedAt = time.Now().UTC()
	}
	if suggestion.Quantity == 0 {
		suggestion.Quantity = 1
	}
	suggestion.Status = models.SuggestionPending
	suggestion.DecidedBy = nil
	suggestion.DecidedAt = nil

	query := `
		INSERT INTO action_suggestions (action_template_id, child_id, quantity, description, date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		suggestion.ActionTemplateID,
		suggestion.ChildID,
		suggestion.Quantity,
		nullable(suggestion.Description),
		suggestion.Date.UTC(),
		suggestion.Status,
		suggestion.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create action suggestion: %w", err)
	}
	suggestion.ID = id
	return nil
}

// decide moves a pending suggestion to status. The WHERE clause on the current
// status makes the transition a compare-and-set: of two concurrent deciders
// only one sees a changed row.
func decide(ctx context.Context, q database.DBTX, id, deciderID int64, status string, at time.Time) error {
	result, err := q.ExecContext(ctx,
		"UPDATE action_suggestions SET status = ?, decided_by = ?, decided_at = ? WHERE id = ? AND status = ?",
		status, deciderID, at.UTC(), id, models.SuggestionPending,
	)
	if err != nil {
		return fmt.Errorf("failed to update action suggestion: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update action suggestion: %w", err)
	}
	if affected > 0 {
		return nil
	}

	if _, err := getActionSuggestion(ctx, q, id); err != nil {
		return err
	}
	return ErrAlreadyDecided
}

// ApproveActionSuggestion marks a pending suggestion approved and creates the
// matching assigned action in the same transaction.
func (r *SuggestionRepository) ApproveActionSuggestion(ctx context.Context, id, deciderID int64) (*models.ActionSuggestion, *models.AssignedAction, error) {
	var (
		suggestion *models.ActionSuggestion
		action     *models.AssignedAction
	)
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		if err := decide(ctx, tx, id, deciderID, models.SuggestionApproved, time.Now()); err != nil {
			return err
		}

		var err error
		suggestion, err = getActionSuggestion(ctx, tx, id)
		if err != nil {
			return err
		}

		action = &models.AssignedAction{
			ActionTemplateID: suggestion.ActionTemplateID,
			ChildID:          suggestion.ChildID,
			AssignedBy:       &deciderID,
			Quantity:         suggestion.Quantity,
			Description:      suggestion.Description,
			Date:             suggestion.Date,
			Completed:        false,
		}
		return insertAssignedAction(ctx, tx, action)
	})
	if err != nil {
		return nil, nil, err
	}
	return suggestion, action, nil
}

// DeclineActionSuggestion marks a pending suggestion declined
func (r *SuggestionRepository) DeclineActionSuggestion(ctx context.Context, id, deciderID int64) (*models.ActionSuggestion, error) {
	if err := decide(ctx, r.db, id, deciderID, models.SuggestionDeclined, time.Now()); err != nil {
		return nil, err
	}
	return r.GetActionSuggestion(ctx, id)
}

func suggestionWhere(filter SuggestionFilter) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if filter.FamilyID != 0 {
		where = append(where, "c.family_id = ?")
		args = append(args, filter.FamilyID)
	}
	if filter.ChildID != 0 {
		where = append(where, "s.child_id = ?")
		args = append(args, filter.ChildID)
	}
	if filter.Status != "" {
		where = append(where, "s.status = ?")
		args = append(args, filter.Status)
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// CountActionSuggestions counts suggestions matching filter
func (r *SuggestionRepository) CountActionSuggestions(ctx context.Context, filter SuggestionFilter) (int, error) {
	where, args := suggestionWhere(filter)
	query := "SELECT COUNT(*) FROM action_suggestions s JOIN users c ON c.id = s.child_id" + where

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count action suggestions: %w", err)
	}
	return count, nil
}

// ListActionSuggestions returns matching suggestions with template, child and
// decider resolved in a single query, newest first.
func (r *SuggestionRepository) ListActionSuggestions(ctx context.Context, filter SuggestionFilter) ([]models.ActionSuggestionDetail, error) {
	where, args := suggestionWhere(filter)
	query := "SELECT " +
		prefixColumns("s", suggestionColumns) + ", " +
		prefixColumns("t", templateColumns) + ", " +
		prefixColumns("c", userColumns) + ", " +
		prefixColumns("d", userColumns) + `
		FROM action_suggestions s
		JOIN action_templates t ON t.id = s.action_template_id
		JOIN users c ON c.id = s.child_id
		LEFT JOIN users d ON d.id = s.decided_by` +
		where + " ORDER BY s.created_at DESC, s.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query action suggestions: %w", err)
	}
	defer rows.Close()

	details := []models.ActionSuggestionDetail{}
	for rows.Next() {
		var (
			suggestion  models.ActionSuggestion
			description sql.NullString
			decidedBy   sql.NullInt64
			decidedAt   sql.NullTime
			template    nullTemplate
			child       nullUser
			decider     nullUser
		)
		dest := suggestionDest(&suggestion, &description, &decidedBy, &decidedAt)
		dest = append(dest, template.dest()...)
		dest = append(dest, child.dest()...)
		dest = append(dest, decider.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan action suggestion: %w", err)
		}
		suggestion.Description = stringPtr(description)
		suggestion.DecidedBy = int64Ptr(decidedBy)
		suggestion.DecidedAt = timePtr(decidedAt)

		details = append(details, models.ActionSuggestionDetail{
			ActionSuggestion: suggestion,
			ActionTemplate:   template.template(),
			Child:            child.user(),
			DecidedByUser:    decider.user(),
		})
	}
	return details, rows.Err()
}
