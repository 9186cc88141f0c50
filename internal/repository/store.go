package repository

import (
	"context"
	"time"

	"familypoints/internal/database"
	"familypoints/internal/models"
)

// ActionFilter narrows an assigned action listing. Zero values are ignored.
type ActionFilter struct {
	FamilyID  int64
	ChildID   int64
	From      *time.Time
	To        *time.Time
	Completed *bool
}

// SuggestionFilter narrows a suggestion listing. Zero values are ignored.
type SuggestionFilter struct {
	FamilyID int64
	ChildID  int64
	Status   string
}

// UserStore covers users, family membership and sessions
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
	LinkOAuth(ctx context.Context, userID int64, provider, subject string) error
	GetFamilyMembers(ctx context.Context, familyID int64) ([]models.User, error)
	RemoveFamilyMember(ctx context.Context, id int64) error

	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// FamilyStore covers families and invitations
type FamilyStore interface {
	GetFamily(ctx context.Context, id int64) (*models.Family, error)
	CreateFamilyWithHead(ctx context.Context, family *models.Family, head *models.User) error

	ListInvitations(ctx context.Context, familyID int64) ([]models.Invitation, error)
	CreateInvitation(ctx context.Context, invitation *models.Invitation) error
	GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error)
	AcceptInvitation(ctx context.Context, token string) (*models.Invitation, error)
	CreateUserFromInvitation(ctx context.Context, token string, user *models.User) (*models.Invitation, error)
}

// ActionStore covers action templates and assigned actions
type ActionStore interface {
	ListActionTemplates(ctx context.Context, familyID int64) ([]models.ActionTemplate, error)
	GetActionTemplate(ctx context.Context, id int64) (*models.ActionTemplate, error)
	CreateActionTemplate(ctx context.Context, template *models.ActionTemplate) error
	UpdateActionTemplate(ctx context.Context, id int64, patch models.ActionTemplatePatch) (*models.ActionTemplate, error)
	DeleteActionTemplate(ctx context.Context, id int64) error

	GetAssignedAction(ctx context.Context, id int64) (*models.AssignedAction, error)
	CreateAssignedAction(ctx context.Context, action *models.AssignedAction) error
	UpdateAssignedAction(ctx context.Context, id int64, patch models.AssignedActionPatch) (*models.AssignedAction, error)
	DeleteAssignedAction(ctx context.Context, id int64) error
	ListAssignedActions(ctx context.Context, filter ActionFilter) ([]models.AssignedActionDetail, error)
}

// SuggestionStore covers action suggestions and their decisions
type SuggestionStore interface {
	GetActionSuggestion(ctx context.Context, id int64) (*models.ActionSuggestion, error)
	CreateActionSuggestion(ctx context.Context, suggestion *models.ActionSuggestion) error
	ListActionSuggestions(ctx context.Context, filter SuggestionFilter) ([]models.ActionSuggestionDetail, error)
	CountActionSuggestions(ctx context.Context, filter SuggestionFilter) (int, error)
	ApproveActionSuggestion(ctx context.Context, id, deciderID int64) (*models.ActionSuggestion, *models.AssignedAction, error)
	DeclineActionSuggestion(ctx context.Context, id, deciderID int64) (*models.ActionSuggestion, error)
}

// ReportStore covers point aggregation
type ReportStore interface {
	GetChildPointsForPeriod(ctx context.Context, childID int64, start, end time.Time) (float64, error)
	GetChildActionsForPeriod(ctx context.Context, childID int64, start, end time.Time) ([]models.AssignedActionDetail, error)
}

// Store is the complete access layer. SQLStore persists to the database;
// memstore.Store keeps everything in memory for tests.
type Store interface {
	UserStore
	FamilyStore
	ActionStore
	SuggestionStore
	ReportStore
}

// SQLStore implements Store on top of the dialect-aware database wrapper
type SQLStore struct {
	*UserRepository
	*FamilyRepository
	*InvitationRepository
	*ActionTemplateRepository
	*AssignedActionRepository
	*SuggestionRepository
	*ReportRepository
}

// NewSQLStore wires every repository to db
func NewSQLStore(db *database.DB) *SQLStore {
	return &SQLStore{
		UserRepository:           NewUserRepository(db),
		FamilyRepository:         NewFamilyRepository(db),
		InvitationRepository:     NewInvitationRepository(db),
		ActionTemplateRepository: NewActionTemplateRepository(db),
		AssignedActionRepository: NewAssignedActionRepository(db),
		SuggestionRepository:     NewSuggestionRepository(db),
		ReportRepository:         NewReportRepository(db),
	}
}

var _ Store = (*SQLStore)(nil)
