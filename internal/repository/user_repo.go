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

// UserRepository handles database operations for users and sessions
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// insertUser runs inside or outside a transaction
func insertUser(ctx context.Context, q database.DBTX, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (username, password_hash, name, email, role, family_id, oauth_provider, oauth_subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := q.ExecReturningID(ctx, query,
		user.Username,
		user.PasswordHash,
		user.Name,
		nullable(user.Email),
		user.Role,
		nullable(user.FamilyID),
		nullIfEmpty(user.OAuthProvider),
		nullIfEmpty(user.OAuthSubject),
		user.CreatedAt.UTC(),
	)
	if err != nil {
		if q.GetDialect().IsUniqueViolation(err) {
			if strings.Contains(strings.ToLower(err.Error()), "username") {
				return ErrUsernameTaken
			}
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = id
	return nil
}

func getUser(ctx context.Context, q database.DBTX, where string, args ...interface{}) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE " + where
	user, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user and sets its ID
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := r.GetUserByUsername(ctx, user.Username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return insertUser(ctx, r.db, user)
}

// GetUser retrieves a user by ID
func (r *UserRepository) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return getUser(ctx, r.db, "id = ?", id)
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return getUser(ctx, r.db, "username = ?", username)
}

// GetUserByOAuth retrieves a user by OAuth provider and subject
func (r *UserRepository) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	return getUser(ctx, r.db, "oauth_provider = ? AND oauth_subject = ?", provider, subject)
}

// UpdateUser applies the supplied profile fields
func (r *UserRepository) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	var (
		sets []string
		args []interface{}
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, nullIfEmpty(*patch.Email))
	}
	if patch.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *patch.PasswordHash)
	}

	if err := updateRow(ctx, r.db, "users", id, sets, args); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return r.GetUser(ctx, id)
}

// LinkOAuth attaches a social login identity to an existing user
func (r *UserRepository) LinkOAuth(ctx context.Context, userID int64, provider, subject string) error {
	query := "UPDATE users SET oauth_provider = ?, oauth_subject = ? WHERE id = ?"
	result, err := r.db.ExecContext(ctx, query, provider, subject, userID)
	if err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}
	return requireRow(result)
}

// GetFamilyMembers lists the users of a family by id
func (r *UserRepository) GetFamilyMembers(ctx context.Context, familyID int64) ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE family_id = ? ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query family members: %w", err)
	}
	defer rows.Close()

	members := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		members = append(members, *user)
	}
	return members, rows.Err()
}

// RemoveFamilyMember hard-deletes the user. Their assigned actions, suggestions
// and sessions go with them; rows they created for others keep a NULL reference.
func (r *UserRepository) RemoveFamilyMember(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	return nil
}

// CreateSession stores a new session
func (r *UserRepository) CreateSession(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	query := "INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, session.ID, session.UserID, session.CreatedAt.UTC(), session.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := "SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = ?"
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session from the database
func (r *UserRepository) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes every session that expired before now
func (r *UserRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// updateRow runs a partial UPDATE and reports ErrNotFound when id does not exist.
// With no fields to set it only checks existence.
func updateRow(ctx context.Context, q database.DBTX, table string, id int64, sets []string, args []interface{}) error {
	if len(sets) == 0 {
		var exists int
		err := q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	query := "UPDATE " + table + " SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := q.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when the values did not change.
	var exists int
	err = q.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
