// Package memstore is an in-memory repository.Store used by service and
// handler tests. It mirrors the SQL store's ordering, cascade and
// compare-and-set behavior.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/repository"
)

// Store keeps every table in a map guarded by a single mutex
type Store struct {
	mu sync.Mutex

	nextID      int64
	families    map[int64]*models.Family
	users       map[int64]*models.User
	sessions    map[string]*models.Session
	templates   map[int64]*models.ActionTemplate
	actions     map[int64]*models.AssignedAction
	suggestions map[int64]*models.ActionSuggestion
	invitations map[int64]*models.Invitation

	now func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store
func New() *Store {
	return &Store{
		families:    make(map[int64]*models.Family),
		users:       make(map[int64]*models.User),
		sessions:    make(map[string]*models.Session),
		templates:   make(map[int64]*models.ActionTemplate),
		actions:     make(map[int64]*models.AssignedAction),
		suggestions: make(map[int64]*models.ActionSuggestion),
		invitations: make(map[int64]*models.Invitation),
		now:         time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) stamp(t *time.Time) {
	if t.IsZero() {
		*t = s.now().UTC()
	}
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func copyTemplate(t *models.ActionTemplate) *models.ActionTemplate {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func ptr[T any](v T) *T {
	return &v
}

// Users

func (s *Store) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.userByUsername(username); u != nil {
		return copyUser(u), nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) userByUsername(username string) *models.User {
	for _, u := range s.users {
		if u.Username == username {
			return u
		}
	}
	return nil
}

func (s *Store) GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.OAuthProvider == provider && u.OAuthSubject == subject && provider != "" {
			return copyUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUser(user)
}

func (s *Store) insertUser(user *models.User) error {
	if s.userByUsername(user.Username) != nil {
		return repository.ErrUsernameTaken
	}
	if user.FamilyID != nil {
		if _, ok := s.families[*user.FamilyID]; !ok {
			return repository.ErrNotFound
		}
		if user.IsHead() {
			for _, u := range s.users {
				if u.IsHead() && u.InFamily(*user.FamilyID) {
					return repository.ErrDuplicate
				}
			}
		}
	}
	if user.OAuthProvider != "" {
		for _, u := range s.users {
			if u.OAuthProvider == user.OAuthProvider && u.OAuthSubject == user.OAuthSubject {
				return repository.ErrDuplicate
			}
		}
	}
	s.stamp(&user.CreatedAt)
	user.ID = s.id()
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Store) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		if *patch.Email == "" {
			u.Email = nil
		} else {
			u.Email = ptr(*patch.Email)
		}
	}
	if patch.PasswordHash != nil {
		u.PasswordHash = *patch.PasswordHash
	}
	return copyUser(u), nil
}

func (s *Store) LinkOAuth(ctx context.Context, userID int64, provider, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.OAuthProvider = provider
	u.OAuthSubject = subject
	return nil
}

func (s *Store) GetFamilyMembers(ctx context.Context, familyID int64) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := []models.User{}
	for _, u := range s.users {
		if u.InFamily(familyID) {
			members = append(members, *u)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

// RemoveFamilyMember deletes the user with the same cascades as the schema
func (s *Store) RemoveFamilyMember(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return nil
	}
	delete(s.users, id)

	for sid, session := range s.sessions {
		if session.UserID == id {
			delete(s.sessions, sid)
		}
	}
	for aid, a := range s.actions {
		if a.ChildID == id {
			delete(s.actions, aid)
		} else if a.AssignedBy != nil && *a.AssignedBy == id {
			a.AssignedBy = nil
		}
	}
	for sid, sg := range s.suggestions {
		if sg.ChildID == id {
			delete(s.suggestions, sid)
		} else if sg.DecidedBy != nil && *sg.DecidedBy == id {
			sg.DecidedBy = nil
		}
	}
	for _, t := range s.templates {
		if t.CreatedBy != nil && *t.CreatedBy == id {
			t.CreatedBy = nil
		}
	}
	for _, inv := range s.invitations {
		if inv.CreatedBy != nil && *inv.CreatedBy == id {
			inv.CreatedBy = nil
		}
		if inv.AcceptedBy != nil && *inv.AcceptedBy == id {
			inv.AcceptedBy = nil
		}
	}
	return nil
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[session.UserID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.sessions[session.ID]; ok {
		return repository.ErrDuplicate
	}
	s.stamp(&session.CreatedAt)
	c := *session
	s.sessions[session.ID] = &c
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *session
	return &c, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, session := range s.sessions {
		if session.ExpiresAt.Before(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// Families and invitations

func (s *Store) GetFamily(ctx context.Context, id int64) (*models.Family, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.families[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *f
	return &c, nil
}

func (s *Store) CreateFamilyWithHead(ctx context.Context, family *models.Family, head *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userByUsername(head.Username) != nil {
		return repository.ErrUsernameTaken
	}
	s.stamp(&family.CreatedAt)
	family.ID = s.id()
	c := *family
	s.families[family.ID] = &c

	head.Role = models.RoleHead
	head.FamilyID = ptr(family.ID)
	if err := s.insertUser(head); err != nil {
		delete(s.families, family.ID)
		family.ID = 0
		return err
	}
	return nil
}

func (s *Store) ListInvitations(ctx context.Context, familyID int64) ([]models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.Invitation{}
	for _, inv := range s.invitations {
		if inv.FamilyID == familyID {
			list = append(list, *inv)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (s *Store) CreateInvitation(ctx context.Context, invitation *models.Invitation) error {
	if invitation.Token == "" {
		token, err := repository.GenerateInvitationToken()
		if err != nil {
			return err
		}
		invitation.Token = token
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.families[invitation.FamilyID]; !ok {
		return repository.ErrNotFound
	}
	if s.invitationByToken(invitation.Token) != nil {
		return repository.ErrDuplicate
	}
	s.stamp(&invitation.CreatedAt)
	invitation.Accepted = false
	invitation.AcceptedBy = nil
	invitation.ID = s.id()
	c := *invitation
	s.invitations[invitation.ID] = &c
	return nil
}

func (s *Store) invitationByToken(token string) *models.Invitation {
	for _, inv := range s.invitations {
		if inv.Token == token {
			return inv
		}
	}
	return nil
}

func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.invitationByToken(token)
	if inv == nil {
		return nil, repository.ErrNotFound
	}
	c := *inv
	return &c, nil
}

func (s *Store) AcceptInvitation(ctx context.Context, token string) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.invitationByToken(token)
	if inv == nil {
		return nil, repository.ErrNotFound
	}
	if inv.Accepted {
		return nil, repository.ErrAlreadyAccepted
	}
	inv.Accepted = true
	c := *inv
	return &c, nil
}

func (s *Store) CreateUserFromInvitation(ctx context.Context, token string, user *models.User) (*models.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := s.invitationByToken(token)
	if inv == nil {
		return nil, repository.ErrNotFound
	}
	if inv.AcceptedBy != nil {
		return nil, repository.ErrInvitationUsed
	}
	user.FamilyID = ptr(inv.FamilyID)
	user.Role = inv.Role
	if err := s.insertUser(user); err != nil {
		user.ID = 0
		return nil, err
	}
	inv.Accepted = true
	inv.AcceptedBy = ptr(user.ID)
	c := *inv
	return &c, nil
}

// Action templates

func (s *Store) ListActionTemplates(ctx context.Context, familyID int64) ([]models.ActionTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := []models.ActionTemplate{}
	for _, t := range s.templates {
		if t.FamilyID == familyID {
			list = append(list, *t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) GetActionTemplate(ctx context.Context, id int64) (*models.ActionTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyTemplate(t), nil
}

func (s *Store) CreateActionTemplate(ctx context.Context, template *models.ActionTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.families[template.FamilyID]; !ok {
		return repository.ErrNotFound
	}
	s.stamp(&template.CreatedAt)
	template.ID = s.id()
	s.templates[template.ID] = copyTemplate(template)
	return nil
}

func (s *Store) UpdateActionTemplate(ctx context.Context, id int64, patch models.ActionTemplatePatch) (*models.ActionTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Name != nil {
		t.Name = *patch.Name
	}
	if patch.Description != nil {
		t.Description = ptr(*patch.Description)
	}
	if patch.Points != nil {
		t.Points = *patch.Points
	}
	return copyTemplate(t), nil
}

// DeleteActionTemplate removes the template and every action and suggestion using it
func (s *Store) DeleteActionTemplate(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.templates, id)
	for aid, a := range s.actions {
		if a.ActionTemplateID == id {
			delete(s.actions, aid)
		}
	}
	for sid, sg := range s.suggestions {
		if sg.ActionTemplateID == id {
			delete(s.suggestions, sid)
		}
	}
	return nil
}

// Assigned actions

func (s *Store) GetAssignedAction(ctx context.Context, id int64) (*models.AssignedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *Store) CreateAssignedAction(ctx context.Context, action *models.AssignedAction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAction(action)
}

func (s *Store) insertAction(action *models.AssignedAction) error {
	if _, ok := s.templates[action.ActionTemplateID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.users[action.ChildID]; !ok {
		return repository.ErrNotFound
	}
	if action.Quantity == 0 {
		action.Quantity = 1
	}
	action.Date = action.Date.UTC()
	s.stamp(&action.CreatedAt)
	action.ID = s.id()
	c := *action
	s.actions[action.ID] = &c
	return nil
}

func (s *Store) UpdateAssignedAction(ctx context.Context, id int64, patch models.AssignedActionPatch) (*models.AssignedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.ActionTemplateID != nil {
		if _, ok := s.templates[*patch.ActionTemplateID]; !ok {
			return nil, repository.ErrNotFound
		}
		a.ActionTemplateID = *patch.ActionTemplateID
	}
	if patch.ChildID != nil {
		if _, ok := s.users[*patch.ChildID]; !ok {
			return nil, repository.ErrNotFound
		}
		a.ChildID = *patch.ChildID
	}
	if patch.Quantity != nil {
		a.Quantity = *patch.Quantity
	}
	if patch.Description != nil {
		a.Description = ptr(*patch.Description)
	}
	if patch.Date != nil {
		a.Date = patch.Date.UTC()
	}
	if patch.Completed != nil {
		a.Completed = *patch.Completed
	}
	c := *a
	return &c, nil
}

func (s *Store) DeleteAssignedAction(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actions, id)
	return nil
}

func (s *Store) ListAssignedActions(ctx context.Context, filter repository.ActionFilter) ([]models.AssignedActionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listActions(filter), nil
}

func (s *Store) listActions(filter repository.ActionFilter) []models.AssignedActionDetail {
	details := []models.AssignedActionDetail{}
	for _, a := range s.actions {
		child := s.users[a.ChildID]
		template := s.templates[a.ActionTemplateID]
		if child == nil || template == nil {
			continue
		}
		if filter.FamilyID != 0 && !child.InFamily(filter.FamilyID) {
			continue
		}
		if filter.ChildID != 0 && a.ChildID != filter.ChildID {
			continue
		}
		if filter.From != nil && a.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.Date.After(*filter.To) {
			continue
		}
		if filter.Completed != nil && a.Completed != *filter.Completed {
			continue
		}

		detail := models.AssignedActionDetail{
			AssignedAction: *a,
			ActionTemplate: copyTemplate(template),
			Child:          copyUser(child),
			TotalPoints:    models.PointsFor(template, a.Quantity),
		}
		if a.AssignedBy != nil {
			detail.AssignedByUser = copyUser(s.users[*a.AssignedBy])
		}
		details = append(details, detail)
	}
	sort.Slice(details, func(i, j int) bool {
		if !details[i].Date.Equal(details[j].Date) {
			return details[i].Date.After(details[j].Date)
		}
		return details[i].ID > details[j].ID
	})
	return details
}

// Suggestions

func (s *Store) GetActionSuggestion(ctx context.Context, id int64) (*models.ActionSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, ok := s.suggestions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *sg
	return &c, nil
}

func (s *Store) CreateActionSuggestion(ctx context.Context, suggestion *models.ActionSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[suggestion.ActionTemplateID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := s.users[suggestion.ChildID]; !ok {
		return repository.ErrNotFound
	}
	if suggestion.Quantity == 0 {
		suggestion.Quantity = 1
	}
	suggestion.Status = models.SuggestionPending
	suggestion.DecidedBy = nil
	suggestion.DecidedAt = nil
	suggestion.Date = suggestion.Date.UTC()
	s.stamp(&suggestion.CreatedAt)
	suggestion.ID = s.id()
	c := *suggestion
	s.suggestions[suggestion.ID] = &c
	return nil
}

func (s *Store) matchSuggestion(sg *models.ActionSuggestion, filter repository.SuggestionFilter) bool {
	child := s.users[sg.ChildID]
	if child == nil {
		return false
	}
	if filter.FamilyID != 0 && !child.InFamily(filter.FamilyID) {
		return false
	}
	if filter.ChildID != 0 && sg.ChildID != filter.ChildID {
		return false
	}
	if filter.Status != "" && sg.Status != filter.Status {
		return false
	}
	return true
}

func (s *Store) ListActionSuggestions(ctx context.Context, filter repository.SuggestionFilter) ([]models.ActionSuggestionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	details := []models.ActionSuggestionDetail{}
	for _, sg := range s.suggestions {
		if !s.matchSuggestion(sg, filter) {
			continue
		}
		template := s.templates[sg.ActionTemplateID]
		if template == nil {
			continue
		}
		detail := models.ActionSuggestionDetail{
			ActionSuggestion: *sg,
			ActionTemplate:   copyTemplate(template),
			Child:            copyUser(s.users[sg.ChildID]),
		}
		if sg.DecidedBy != nil {
			detail.DecidedByUser = copyUser(s.users[*sg.DecidedBy])
		}
		details = append(details, detail)
	}
	sort.Slice(details, func(i, j int) bool {
		if !details[i].CreatedAt.Equal(details[j].CreatedAt) {
			return details[i].CreatedAt.After(details[j].CreatedAt)
		}
		return details[i].ID > details[j].ID
	})
	return details, nil
}

func (s *Store) CountActionSuggestions(ctx context.Context, filter repository.SuggestionFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, sg := range s.suggestions {
		if s.matchSuggestion(sg, filter) {
			count++
		}
	}
	return count, nil
}

func (s *Store) decide(id, deciderID int64, status string) (*models.ActionSuggestion, error) {
	sg, ok := s.suggestions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !sg.IsPending() {
		return nil, repository.ErrAlreadyDecided
	}
	sg.Status = status
	sg.DecidedBy = ptr(deciderID)
	sg.DecidedAt = ptr(s.now().UTC())
	return sg, nil
}

func (s *Store) ApproveActionSuggestion(ctx context.Context, id, deciderID int64) (*models.ActionSuggestion, *models.AssignedAction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.decide(id, deciderID, models.SuggestionApproved)
	if err != nil {
		return nil, nil, err
	}
	action := &models.AssignedAction{
		ActionTemplateID: sg.ActionTemplateID,
		ChildID:          sg.ChildID,
		AssignedBy:       ptr(deciderID),
		Quantity:         sg.Quantity,
		Description:      sg.Description,
		Date:             sg.Date,
	}
	if err := s.insertAction(action); err != nil {
		sg.Status = models.SuggestionPending
		sg.DecidedBy = nil
		sg.DecidedAt = nil
		return nil, nil, err
	}
	c := *sg
	return &c, action, nil
}

func (s *Store) DeclineActionSuggestion(ctx context.Context, id, deciderID int64) (*models.ActionSuggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.decide(id, deciderID, models.SuggestionDeclined)
	if err != nil {
		return nil, err
	}
	c := *sg
	return &c, nil
}

// Reports

func (s *Store) GetChildPointsForPeriod(ctx context.Context, childID int64, start, end time.Time) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	completed := true
	var total float64
	for _, a := range s.listActions(repository.ActionFilter{ChildID: childID, From: &start, To: &end, Completed: &completed}) {
		total += a.TotalPoints
	}
	return total, nil
}

func (s *Store) GetChildActionsForPeriod(ctx context.Context, childID int64, start, end time.Time) ([]models.AssignedActionDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listActions(repository.ActionFilter{ChildID: childID, From: &start, To: &end}), nil
}
