package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

// ActionTemplateRepository handles database operations for action templates
type ActionTemplateRepository struct {
	db *database.DB
}

func NewActionTemplateRepository(db *database.DB) *ActionTemplateRepository {
	return &ActionTemplateRepository{db: db}
}

// ListActionTemplates returns the family's templates ordered by id
func (r *ActionTemplateRepository) ListActionTemplates(ctx context.Context, familyID int64) ([]models.ActionTemplate, error) {
	query := "SELECT " + templateColumns + " FROM action_templates WHERE family_id = ? ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query action templates: %w", err)
	}
	defer rows.Close()

	templates := []models.ActionTemplate{}
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action template: %w", err)
		}
		templates = append(templates, *template)
	}
	return templates, rows.Err()
}

func getActionTemplate(ctx context.Context, q database.DBTX, id int64) (*models.ActionTemplate, error) {
	query := "SELECT " + templateColumns + " FROM action_templates WHERE id = ?"
	template, err := scanTemplate(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get action template: %w", err)
	}
	return template, nil
}

// GetActionTemplate retrieves a template by ID
func (r *ActionTemplateRepository) GetActionTemplate(ctx context.Context, id int64) (*models.ActionTemplate, error) {
	return getActionTemplate(ctx, r.db, id)
}

// CreateActionTemplate inserts a template and sets its ID
func (r *ActionTemplateRepository) CreateActionTemplate(ctx context.Context, template *models.ActionTemplate) error {
	if template.CreatedAt.IsZero() {
		template.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO action_templates (family_id, name, description, points, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		template.FamilyID,
		template.Name,
		nullable(template.Description),
		template.Points,
		nullable(template.CreatedBy),
		template.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create action template: %w", err)
	}
	template.ID = id
	return nil
}

// UpdateActionTemplate merges the supplied fields into the template
func (r *ActionTemplateRepository) UpdateActionTemplate(ctx context.Context, id int64, patch models.ActionTemplatePatch) (*models.ActionTemplate, error) {
	var (
		sets []string
		args []interface{}
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullIfEmpty(*patch.Description))
	}
	if patch.Points != nil {
		sets = append(sets, "points = ?")
		args = append(args, *patch.Points)
	}

	if err := updateRow(ctx, r.db, "action_templates", id, sets, args); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update action template: %w", err)
	}
	return r.GetActionTemplate(ctx, id)
}

// DeleteActionTemplate removes the template together with the actions and
// suggestions that reference it. Deleting a missing template is a no-op.
func (r *ActionTemplateRepository) DeleteActionTemplate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM action_templates WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete action template: %w", err)
	}
	return nil
}
