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

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// CreateFamilyWithHead creates a family and its head user in one transaction
func (r *FamilyRepository) CreateFamilyWithHead(ctx context.Context, family *models.Family, head *models.User) error {
	return r.db.WithTx(ctx, func(tx *database.Tx) error {
		if _, err := getUser(ctx, tx, "username = ?", head.Username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if family.CreatedAt.IsZero() {
			family.CreatedAt = time.Now().UTC()
		}
		familyID, err := tx.ExecReturningID(ctx,
			"INSERT INTO families (name, created_at) VALUES (?, ?)",
			family.Name, family.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to create family: %w", err)
		}
		family.ID = familyID

		head.Role = models.RoleHead
		head.FamilyID = &familyID
		return insertUser(ctx, tx, head)
	})
}

// GetFamily retrieves a family by ID
func (r *FamilyRepository) GetFamily(ctx context.Context, id int64) (*models.Family, error) {
	family := &models.Family{}
	err := r.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM families WHERE id = ?", id).Scan(
		&family.ID,
		&family.Name,
		&family.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}
