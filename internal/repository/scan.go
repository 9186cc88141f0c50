package repository

import (
	"database/sql"
	"time"

	"familypoints/internal/models"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const userColumns = "id, username, password_hash, name, email, role, family_id, oauth_provider, oauth_subject, created_at"

func scanUser(s rowScanner) (*models.User, error) {
	var (
		user                   models.User
		email                  sql.NullString
		familyID               sql.NullInt64
		oauthProvider, subject sql.NullString
	)
	err := s.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Name,
		&email,
		&user.Role,
		&familyID,
		&oauthProvider,
		&subject,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Email = stringPtr(email)
	user.FamilyID = int64Ptr(familyID)
	user.OAuthProvider = oauthProvider.String
	user.OAuthSubject = subject.String
	return &user, nil
}

// nullUser receives the columns of an optional joined user
type nullUser struct {
	id, familyID                              sql.NullInt64
	username, passwordHash, name, email, role sql.NullString
	oauthProvider, oauthSubject               sql.NullString
	createdAt                                 sql.NullTime
}

func (u *nullUser) dest() []interface{} {
	return []interface{}{
		&u.id, &u.username, &u.passwordHash, &u.name, &u.email,
		&u.role, &u.familyID, &u.oauthProvider, &u.oauthSubject, &u.createdAt,
	}
}

func (u *nullUser) user() *models.User {
	if !u.id.Valid {
		return nil
	}
	return &models.User{
		ID:            u.id.Int64,
		Username:      u.username.String,
		PasswordHash:  u.passwordHash.String,
		Name:          u.name.String,
		Email:         stringPtr(u.email),
		Role:          u.role.String,
		FamilyID:      int64Ptr(u.familyID),
		OAuthProvider: u.oauthProvider.String,
		OAuthSubject:  u.oauthSubject.String,
		CreatedAt:     u.createdAt.Time,
	}
}

const templateColumns = "id, family_id, name, description, points, created_by, created_at"

func scanTemplate(s rowScanner) (*models.ActionTemplate, error) {
	var (
		template    models.ActionTemplate
		description sql.NullString
		createdBy   sql.NullInt64
	)
	if err := s.Scan(
		&template.ID,
		&template.FamilyID,
		&template.Name,
		&description,
		&template.Points,
		&createdBy,
		&template.CreatedAt,
	); err != nil {
		return nil, err
	}
	template.Description = stringPtr(description)
	template.CreatedBy = int64Ptr(createdBy)
	return &template, nil
}

const assignedActionColumns = "id, action_template_id, child_id, assigned_by, quantity, description, date, completed, created_at"

func assignedActionDest(a *models.AssignedAction, assignedBy *sql.NullInt64, description *sql.NullString) []interface{} {
	return []interface{}{
		&a.ID, &a.ActionTemplateID, &a.ChildID, assignedBy, &a.Quantity,
		description, &a.Date, &a.Completed, &a.CreatedAt,
	}
}

func scanAssignedAction(s rowScanner) (*models.AssignedAction, error) {
	var (
		action      models.AssignedAction
		assignedBy  sql.NullInt64
		description sql.NullString
	)
	if err := s.Scan(assignedActionDest(&action, &assignedBy, &description)...); err != nil {
		return nil, err
	}
	action.AssignedBy = int64Ptr(assignedBy)
	action.Description = stringPtr(description)
	return &action, nil
}

const suggestionColumns = "id, action_template_id, child_id, quantity, description, date, status, decided_by, decided_at, created_at"

func suggestionDest(s *models.ActionSuggestion, description *sql.NullString, decidedBy *sql.NullInt64, decidedAt *sql.NullTime) []interface{} {
	return []interface{}{
		&s.ID, &s.ActionTemplateID, &s.ChildID, &s.Quantity, description,
		&s.Date, &s.Status, decidedBy, decidedAt, &s.CreatedAt,
	}
}

func scanSuggestion(s rowScanner) (*models.ActionSuggestion, error) {
	var (
		suggestion  models.ActionSuggestion
		description sql.NullString
		decidedBy   sql.NullInt64
		decidedAt   sql.NullTime
	)
	if err := s.Scan(suggestionDest(&suggestion, &description, &decidedBy, &decidedAt)...); err != nil {
		return nil, err
	}
	suggestion.Description = stringPtr(description)
	suggestion.DecidedBy = int64Ptr(decidedBy)
	suggestion.DecidedAt = timePtr(decidedAt)
	return &suggestion, nil
}

const invitationColumns = "id, family_id, email, role, token, created_by, created_at, accepted, accepted_by"

func scanInvitation(s rowScanner) (*models.Invitation, error) {
	var (
		inv                   models.Invitation
		createdBy, acceptedBy sql.NullInt64
	)
	if err := s.Scan(
		&inv.ID,
		&inv.FamilyID,
		&inv.Email,
		&inv.Role,
		&inv.Token,
		&createdBy,
		&inv.CreatedAt,
		&inv.Accepted,
		&acceptedBy,
	); err != nil {
		return nil, err
	}
	inv.CreatedBy = int64Ptr(createdBy)
	inv.AcceptedBy = int64Ptr(acceptedBy)
	return &inv, nil
}

// prefixColumns qualifies a column list with a table alias
func prefixColumns(alias, columns string) string {
	out := make([]byte, 0, len(columns)*2)
	start := true
	for i := 0; i < len(columns); i++ {
		c := columns[i]
		if start && c != ' ' {
			out = append(out, alias...)
			out = append(out, '.')
			start = false
		}
		out = append(out, c)
		if c == ',' {
			start = true
		}
	}
	return string(out)
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// nullable converts optional model fields into driver values
func nullable[T any](v *T) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// nullTemplate receives the columns of a joined template
type nullTemplate struct {
	id, familyID, createdBy sql.NullInt64
	name, description       sql.NullString
	points                  sql.NullFloat64
	createdAt               sql.NullTime
}

func (t *nullTemplate) dest() []interface{} {
	return []interface{}{
		&t.id, &t.familyID, &t.name, &t.description, &t.points, &t.createdBy, &t.createdAt,
	}
}

func (t *nullTemplate) template() *models.ActionTemplate {
	if !t.id.Valid {
		return nil
	}
	return &models.ActionTemplate{
		ID:          t.id.Int64,
		FamilyID:    t.familyID.Int64,
		Name:        t.name.String,
		Description: stringPtr(t.description),
		Points:      t.points.Float64,
		CreatedBy:   int64Ptr(t.createdBy),
		CreatedAt:   t.createdAt.Time,
	}
}
