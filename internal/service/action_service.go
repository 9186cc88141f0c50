package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/validation"
)

// ActionService handles action templates and assigned actions. Every
// operation resolves the target row to its family before touching it.
type ActionService struct {
	store repository.Store
	now   func() time.Time
}

// NewActionService creates a new action service
func NewActionService(store repository.Store) *ActionService {
	return &ActionService{store: store, now: time.Now}
}

// ListTemplates returns the caller's family templates ordered by id
func (s *ActionService) ListTemplates(ctx context.Context, caller *models.User) ([]models.ActionTemplate, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return nil, err
	}
	return s.store.ListActionTemplates(ctx, familyID)
}

// CreateTemplate adds a template to the caller's family
func (s *ActionService) CreateTemplate(ctx context.Context, caller *models.User, req models.ActionTemplateRequest) (*models.ActionTemplate, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.ValidateActionTemplate(req); err != nil {
		return nil, err
	}

	template := &models.ActionTemplate{
		FamilyID:    familyID,
		Name:        req.Name,
		Description: req.Description,
		Points:      *req.Points,
		CreatedBy:   &caller.ID,
	}
	if err := s.store.CreateActionTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create action template: %w", err)
	}
	return template, nil
}

// UpdateTemplate applies the supplied fields to a template of the caller's family
func (s *ActionService) UpdateTemplate(ctx context.Context, caller *models.User, id int64, req models.ActionTemplatePatchRequest) (*models.ActionTemplate, error) {
	if _, err := s.authorizeTemplate(ctx, caller, id); err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validation.ValidateActionTemplatePatch(req); err != nil {
		return nil, err
	}
	return s.store.UpdateActionTemplate(ctx, id, models.ActionTemplatePatch{
		Name:        req.Name,
		Description: req.Description,
		Points:      req.Points,
	})
}

// DeleteTemplate removes a template together with its assigned actions and suggestions
func (s *ActionService) DeleteTemplate(ctx context.Context, caller *models.User, id int64) error {
	if _, err := s.authorizeTemplate(ctx, caller, id); err != nil {
		return err
	}
	return s.store.DeleteActionTemplate(ctx, id)
}

// authorizeTemplate loads a template and checks it belongs to the caller's family
func (s *ActionService) authorizeTemplate(ctx context.Context, caller *models.User, id int64) (*models.ActionTemplate, error) {
	template, err := s.store.GetActionTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.InFamily(template.FamilyID) {
		return nil, ErrForbidden
	}
	return template, nil
}

// ListAssigned returns the caller's own actions for a child, or every action
// in the family otherwise
func (s *ActionService) ListAssigned(ctx context.Context, caller *models.User) ([]models.AssignedActionDetail, error) {
	filter, err := s.callerFilter(caller)
	if err != nil {
		return nil, err
	}
	return s.store.ListAssignedActions(ctx, filter)
}

// ListToday is ListAssigned restricted to actions dated today in local time
func (s *ActionService) ListToday(ctx context.Context, caller *models.User) ([]models.AssignedActionDetail, error) {
	filter, err := s.callerFilter(caller)
	if err != nil {
		return nil, err
	}
	from, to := dayBounds(s.now())
	filter.From = &from
	filter.To = &to
	return s.store.ListAssignedActions(ctx, filter)
}

func (s *ActionService) callerFilter(caller *models.User) (repository.ActionFilter, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return repository.ActionFilter{}, err
	}
	if caller.IsChild() {
		return repository.ActionFilter{ChildID: caller.ID}, nil
	}
	return repository.ActionFilter{FamilyID: familyID}, nil
}

// dayBounds returns the first and last instant of the local day containing t
func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// CreateAssigned assigns a template of the caller's family to one of its children
func (s *ActionService) CreateAssigned(ctx context.Context, caller *models.User, req models.AssignedActionRequest) (*models.AssignedAction, error) {
	if _, err := familyOf(caller); err != nil {
		return nil, err
	}
	if err := validation.ValidateAssignedAction(req); err != nil {
		return nil, err
	}
	if err := checkFamilyTemplate(ctx, s.store, caller, req.ActionTemplateID); err != nil {
		return nil, err
	}
	if err := checkFamilyChild(ctx, s.store, caller, req.ChildID); err != nil {
		return nil, err
	}

	action := &models.AssignedAction{
		ActionTemplateID: req.ActionTemplateID,
		ChildID:          req.ChildID,
		AssignedBy:       &caller.ID,
		Quantity:         1,
		Description:      req.Description,
		Date:             req.Date.Time.UTC(),
	}
	if req.Quantity != nil {
		action.Quantity = *req.Quantity
	}
	if err := s.store.CreateAssignedAction(ctx, action); err != nil {
		return nil, fmt.Errorf("failed to create assigned action: %w", err)
	}
	return action, nil
}

// UpdateAssigned applies a partial update. fields lists the keys present in
// the request body: a child may only send "completed", on their own actions.
func (s *ActionService) UpdateAssigned(ctx context.Context, caller *models.User, id int64, fields []string, req models.AssignedActionPatchRequest) (*models.AssignedAction, error) {
	if _, err := s.authorizeAssigned(ctx, caller, id); err != nil {
		return nil, err
	}

	if caller.IsChild() {
		for _, field := range fields {
			if field != "completed" {
				return nil, ErrChildFieldRestricted
			}
		}
		return s.store.UpdateAssignedAction(ctx, id, models.AssignedActionPatch{Completed: req.Completed})
	}

	if err := validation.ValidateAssignedActionPatch(req); err != nil {
		return nil, err
	}
	if req.ActionTemplateID != nil {
		if err := checkFamilyTemplate(ctx, s.store, caller, *req.ActionTemplateID); err != nil {
			return nil, err
		}
	}
	if req.ChildID != nil {
		if err := checkFamilyChild(ctx, s.store, caller, *req.ChildID); err != nil {
			return nil, err
		}
	}
	return s.store.UpdateAssignedAction(ctx, id, req.ToPatch())
}

// CompleteAssigned marks an action completed
func (s *ActionService) CompleteAssigned(ctx context.Context, caller *models.User, id int64) (*models.AssignedAction, error) {
	if _, err := s.authorizeAssigned(ctx, caller, id); err != nil {
		return nil, err
	}
	completed := true
	return s.store.UpdateAssignedAction(ctx, id, models.AssignedActionPatch{Completed: &completed})
}

// DeleteAssigned removes an action of the caller's family
func (s *ActionService) DeleteAssigned(ctx context.Context, caller *models.User, id int64) error {
	if _, err := s.authorizeAssigned(ctx, caller, id); err != nil {
		return err
	}
	return s.store.DeleteAssignedAction(ctx, id)
}

// authorizeAssigned loads an action and checks the caller may touch it: a
// child only their own, everyone else any action of a child in their family
func (s *ActionService) authorizeAssigned(ctx context.Context, caller *models.User, id int64) (*models.AssignedAction, error) {
	action, err := s.store.GetAssignedAction(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.IsChild() {
		if action.ChildID != caller.ID {
			return nil, ErrForbidden
		}
		return action, nil
	}

	child, err := s.store.GetUser(ctx, action.ChildID)
	if err != nil {
		return nil, fmt.Errorf("failed to load child of action %d: %w", id, err)
	}
	if !caller.SameFamily(child) {
		return nil, ErrForbidden
	}
	return action, nil
}

// checkFamilyTemplate rejects templates that are missing or owned by another family
func checkFamilyTemplate(ctx context.Context, store repository.Store, caller *models.User, templateID int64) error {
	template, err := store.GetActionTemplate(ctx, templateID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidTemplate
	}
	if err != nil {
		return err
	}
	if !caller.InFamily(template.FamilyID) {
		return ErrInvalidTemplate
	}
	return nil
}

// checkFamilyChild rejects ids that are not a child of the caller's family
func checkFamilyChild(ctx context.Context, store repository.Store, caller *models.User, childID int64) error {
	child, err := store.GetUser(ctx, childID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrInvalidChild
	}
	if err != nil {
		return err
	}
	if !child.IsChild() || !caller.SameFamily(child) {
		return ErrInvalidChild
	}
	return nil
}
