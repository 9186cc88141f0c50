package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

type InvitationRepository struct {
	db *database.DB
}

func NewInvitationRepository(db *database.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// GenerateInvitationToken returns 32 hex characters of crypto randomness
func GenerateInvitationToken() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// CreateInvitation stores a new invitation, generating its token when empty
func (r *InvitationRepository) CreateInvitation(ctx context.Context, inv *models.Invitation) error {
	if inv.Token == "" {
		token, err := GenerateInvitationToken()
		if err != nil {
			return fmt.Errorf("failed to generate invitation token: %w", err)
		}
		inv.Token = token
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	inv.Accepted = false

	query := `
		INSERT INTO invitations (family_id, email, role, token, created_by, created_at, accepted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		inv.FamilyID, inv.Email, inv.Role, inv.Token, nullable(inv.CreatedBy), inv.CreatedAt.UTC(), false,
	)
	if err != nil {
		if r.db.Dialect.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	inv.ID = id
	return nil
}

// ListInvitations returns the family's invitations, newest first
func (r *InvitationRepository) ListInvitations(ctx context.Context, familyID int64) ([]models.Invitation, error) {
	query := "SELECT " + invitationColumns + " FROM invitations WHERE family_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	invitations := []models.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

func getInvitationByToken(ctx context.Context, q database.DBTX, token string) (*models.Invitation, error) {
	query := "SELECT " + invitationColumns + " FROM invitations WHERE token = ?"
	inv, err := scanInvitation(q.QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// GetInvitationByToken retrieves an invitation by its token
func (r *InvitationRepository) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	return getInvitationByToken(ctx, r.db, token)
}

// AcceptInvitation flips accepted from false to true exactly once
func (r *InvitationRepository) AcceptInvitation(ctx context.Context, token string) (*models.Invitation, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE invitations SET accepted = ? WHERE token = ? AND accepted = ?",
		true, token, false,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	inv, err := r.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrAlreadyAccepted
	}
	return inv, nil
}

// CreateUserFromInvitation creates user in the invitation's family with the
// invitation's role and claims the token, all in one transaction. A token
// that already produced an account yields ErrInvitationUsed.
func (r *InvitationRepository) CreateUserFromInvitation(ctx context.Context, token string, user *models.User) (*models.Invitation, error) {
	var claimed *models.Invitation
	err := r.db.WithTx(ctx, func(tx *database.Tx) error {
		inv, err := getInvitationByToken(ctx, tx, token)
		if err != nil {
			return err
		}
		if inv.AcceptedBy != nil {
			return ErrInvitationUsed
		}
		if _, err := getUser(ctx, tx, "username = ?", user.Username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		familyID := inv.FamilyID
		user.FamilyID = &familyID
		user.Role = inv.Role
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			"UPDATE invitations SET accepted = ?, accepted_by = ? WHERE id = ? AND accepted_by IS NULL",
			true, user.ID, inv.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to claim invitation: %w", err)
		}
		if err := requireRow(result); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrInvitationUsed
			}
			return err
		}

		inv.Accepted = true
		inv.AcceptedBy = &user.ID
		claimed = inv
		return nil
	})
	if err != nil {
		user.ID = 0
		return nil, err
	}
	return claimed, nil
}
