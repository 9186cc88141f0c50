package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure. Sessions are
// not exported.
type BackupData struct {
	Version           string             `json:"version"`
	ExportedAt        time.Time          `json:"exported_at"`
	DatabaseType      string             `json:"database_type"`
	Families          []FamilyBackup     `json:"families"`
	Users             []UserBackup       `json:"users"`
	ActionTemplates   []TemplateBackup   `json:"action_templates"`
	AssignedActions   []ActionBackup     `json:"assigned_actions"`
	ActionSuggestions []SuggestionBackup `json:"action_suggestions"`
	Invitations       []InvitationBackup `json:"invitations"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	Email         *string   `json:"email"`
	Role          string    `json:"role"`
	FamilyID      *int64    `json:"family_id"`
	OAuthProvider *string   `json:"oauth_provider"`
	OAuthSubject  *string   `json:"oauth_subject"`
	CreatedAt     time.Time `json:"created_at"`
}

// TemplateBackup represents an action template for backup
type TemplateBackup struct {
	ID          int64     `json:"id"`
	FamilyID    int64     `json:"family_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Points      float64   `json:"points"`
	CreatedBy   *int64    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActionBackup represents an assigned action for backup
type ActionBackup struct {
	ID               int64     `json:"id"`
	ActionTemplateID int64     `json:"action_template_id"`
	ChildID          int64     `json:"child_id"`
	AssignedBy       *int64    `json:"assigned_by"`
	Quantity         int       `json:"quantity"`
	Description      *string   `json:"description"`
	Date             time.Time `json:"date"`
	Completed        bool      `json:"completed"`
	CreatedAt        time.Time `json:"created_at"`
}

// SuggestionBackup represents an action suggestion for backup
type SuggestionBackup struct {
	ID               int64      `json:"id"`
	ActionTemplateID int64      `json:"action_template_id"`
	ChildID          int64      `json:"child_id"`
	Quantity         int        `json:"quantity"`
	Description      *string    `json:"description"`
	Date             time.Time  `json:"date"`
	Status           string     `json:"status"`
	DecidedBy        *int64     `json:"decided_by"`
	DecidedAt        *time.Time `json:"decided_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

// InvitationBackup represents an invitation for backup
type InvitationBackup struct {
	ID         int64     `json:"id"`
	FamilyID   int64     `json:"family_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Token      string    `json:"token"`
	CreatedBy  *int64    `json:"created_by"`
	Accepted   bool      `json:"accepted"`
	AcceptedBy *int64    `json:"accepted_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// BackupTables lists every table in dependency order
var BackupTables = []string{
	"families",
	"users",
	"sessions",
	"action_templates",
	"assigned_actions",
	"action_suggestions",
	"invitations",
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(ctx, file)
}

// ExportToWriter writes the backup as indented JSON
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	steps := []struct {
		name string
		fn   func(context.Context, *BackupData) error
	}{
		{"families", s.exportFamilies},
		{"users", s.exportUsers},
		{"action templates", s.exportTemplates},
		{"assigned actions", s.exportActions},
		{"action suggestions", s.exportSuggestions},
		{"invitations", s.exportInvitations},
	}
	for _, step := range steps {
		if err := step.fn(ctx, backup); err != nil {
			return fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d families, %d users, %d templates, %d actions, %d suggestions, %d invitations",
		len(backup.Families), len(backup.Users), len(backup.ActionTemplates),
		len(backup.AssignedActions), len(backup.ActionSuggestions), len(backup.Invitations))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores every table in one transaction, keeping the
// original ids
func (s *BackupService) ImportFromReader(ctx context.Context, r io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		steps := []struct {
			name string
			fn   func(context.Context, *database.Tx, *BackupData) error
		}{
			{"families", importFamilies},
			{"users", importUsers},
			{"action templates", importTemplates},
			{"assigned actions", importActions},
			{"action suggestions", importSuggestions},
			{"invitations", importInvitations},
		}
		for _, step := range steps {
			if err := step.fn(ctx, tx, &backup); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.resetSequences(ctx); err != nil {
		return err
	}
	log.Println("Database import completed successfully")
	return nil
}

// Clear deletes every row, children first
func (s *BackupService) Clear(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		for i := len(BackupTables) - 1; i >= 0; i-- {
			table := BackupTables[i]
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			log.Printf("Cleared table: %s", table)
		}
		return nil
	})
}

// resetSequences moves id sequences past the imported ids where the engine
// needs it
func (s *BackupService) resetSequences(ctx context.Context) error {
	for _, table := range BackupTables {
		if table == "sessions" {
			continue
		}
		query := s.db.Dialect.ResetSequenceQuery(table)
		if query == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}

func (s *BackupService) exportFamilies(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM families ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.CreatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func (s *BackupService) exportUsers(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, username, password_hash, name, email, role, family_id, oauth_provider, oauth_subject, created_at FROM users ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u                        UserBackup
			email, provider, subject sql.NullString
			familyID                 sql.NullInt64
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &email, &u.Role, &familyID, &provider, &subject, &u.CreatedAt); err != nil {
			return err
		}
		u.Email = nullString(email)
		u.FamilyID = nullInt64(familyID)
		u.OAuthProvider = nullString(provider)
		u.OAuthSubject = nullString(subject)
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportTemplates(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, family_id, name, description, points, created_by, created_at FROM action_templates ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t           TemplateBackup
			description sql.NullString
			createdBy   sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.FamilyID, &t.Name, &description, &t.Points, &createdBy, &t.CreatedAt); err != nil {
			return err
		}
		t.Description = nullString(description)
		t.CreatedBy = nullInt64(createdBy)
		backup.ActionTemplates = append(backup.ActionTemplates, t)
	}
	return rows.Err()
}

func (s *BackupService) exportActions(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, action_template_id, child_id, assigned_by, quantity, description, date, completed, created_at FROM assigned_actions ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a           ActionBackup
			assignedBy  sql.NullInt64
			description sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.ActionTemplateID, &a.ChildID, &assignedBy, &a.Quantity, &description, &a.Date, &a.Completed, &a.CreatedAt); err != nil {
			return err
		}
		a.AssignedBy = nullInt64(assignedBy)
		a.Description = nullString(description)
		backup.AssignedActions = append(backup.AssignedActions, a)
	}
	return rows.Err()
}

func (s *BackupService) exportSuggestions(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, action_template_id, child_id, quantity, description, date, status, decided_by, decided_at, created_at FROM action_suggestions ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sg          SuggestionBackup
			description sql.NullString
			decidedBy   sql.NullInt64
			decidedAt   sql.NullTime
		)
		if err := rows.Scan(&sg.ID, &sg.ActionTemplateID, &sg.ChildID, &sg.Quantity, &description, &sg.Date, &sg.Status, &decidedBy, &decidedAt, &sg.CreatedAt); err != nil {
			return err
		}
		sg.Description = nullString(description)
		sg.DecidedBy = nullInt64(decidedBy)
		if decidedAt.Valid {
			sg.DecidedAt = &decidedAt.Time
		}
		backup.ActionSuggestions = append(backup.ActionSuggestions, sg)
	}
	return rows.Err()
}

func (s *BackupService) exportInvitations(ctx context.Context, backup *BackupData) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, family_id, email, role, token, created_by, accepted, accepted_by, created_at FROM invitations ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			inv                   InvitationBackup
			createdBy, acceptedBy sql.NullInt64
		)
		if err := rows.Scan(&inv.ID, &inv.FamilyID, &inv.Email, &inv.Role, &inv.Token, &createdBy, &inv.Accepted, &acceptedBy, &inv.CreatedAt); err != nil {
			return err
		}
		inv.CreatedBy = nullInt64(createdBy)
		inv.AcceptedBy = nullInt64(acceptedBy)
		backup.Invitations = append(backup.Invitations, inv)
	}
	return rows.Err()
}

func importFamilies(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	log.Printf("Importing %d families...", len(backup.Families))
	for _, f := range backup.Families {
		if _, err := tx.ExecContext(ctx, "INSERT INTO families (id, name, created_at) VALUES (?, ?, ?)",
			f.ID, f.Name, f.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("family %d: %w", f.ID, err)
		}
	}
	return nil
}

func importUsers(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	log.Printf("Importing %d users...", len(backup.Users))
	for _, u := range backup.Users {
		if !models.ValidRole(u.Role) {
			return fmt.Errorf("user %d: invalid role %q", u.ID, u.Role)
		}
		query := `INSERT INTO users (id, username, password_hash, name, email, role, family_id, oauth_provider, oauth_subject, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query,
			u.ID, u.Username, u.PasswordHash, u.Name, ptrValue(u.Email), u.Role, ptrValue(u.FamilyID),
			ptrValue(u.OAuthProvider), ptrValue(u.OAuthSubject), u.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importTemplates(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	log.Printf("Importing %d action templates...", len(backup.ActionTemplates))
	for _, t := range backup.ActionTemplates {
		query := `INSERT INTO action_templates (id, family_id, name, description, points, created_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query,
			t.ID, t.FamilyID, t.Name, ptrValue(t.Description), t.Points, ptrValue(t.CreatedBy), t.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("action template %d: %w", t.ID, err)
		}
	}
	return nil
}

func importActions(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	log.Printf("Importing %d assigned actions...", len(backup.AssignedActions))
	for _, a := range backup.AssignedActions {
		query := `INSERT INTO assigned_actions (id, action_template_id, child_id, assigned_by, quantity, description, date, completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query,
			a.ID, a.ActionTemplateID, a.ChildID, ptrValue(a.AssignedBy), a.Quantity, ptrValue(a.Description),
			a.Date.UTC(), a.Completed, a.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("assigned action %d: %w", a.ID, err)
		}
	}
	return nil
}

func importSuggestions(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	log.Printf("Importing %d action suggestions...", len(backup.ActionSuggestions))
	for _, sg := range backup.ActionSuggestions {
		var decidedAt interface{}
		if sg.DecidedAt != nil {
			decidedAt = sg.DecidedAt.UTC()
		}
		query := `INSERT INTO action_suggestions (id, action_template_id, child_id, quantity, description, date, status, decided_by, decided_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query,
			sg.ID, sg.ActionTemplateID, sg.ChildID, sg.Quantity, ptrValue(sg.Description), sg.Date.UTC(),
			sg.Status, ptrValue(sg.DecidedBy), decidedAt, sg.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("action suggestion %d: %w", sg.ID, err)
		}
	}
	return nil
}

func importInvitations(ctx context.Context, tx *database.Tx, backup *BackupData) error {
	log.Printf("Importing %d invitations...", len(backup.Invitations))
	for _, inv := range backup.Invitations {
		query := `INSERT INTO invitations (id, family_id, email, role, token, created_by, accepted, accepted_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, query,
			inv.ID, inv.FamilyID, inv.Email, inv.Role, inv.Token, ptrValue(inv.CreatedBy), inv.Accepted,
			ptrValue(inv.AcceptedBy), inv.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("invitation %d: %w", inv.ID, err)
		}
	}
	return nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func ptrValue[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
