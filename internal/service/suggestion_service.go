package service

import (
	"context"
	"fmt"
	"log"

	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/validation"
)

// SuggestionService handles children's action suggestions and their decisions
type SuggestionService struct {
	store repository.Store
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(store repository.Store) *SuggestionService {
	return &SuggestionService{store: store}
}

// List returns suggestions visible to the caller, optionally by status.
// Children only see their own.
func (s *SuggestionService) List(ctx context.Context, caller *models.User, status string) ([]models.ActionSuggestionDetail, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return nil, err
	}
	if status != "" && !models.ValidSuggestionStatus(status) {
		return nil, validation.ValidationError{Field: "status", Message: "status must be pending, approved or declined"}
	}

	filter := repository.SuggestionFilter{FamilyID: familyID, Status: status}
	if caller.IsChild() {
		filter.ChildID = caller.ID
	}
	return s.store.ListActionSuggestions(ctx, filter)
}

// ListPending returns the family's suggestions awaiting a decision
func (s *SuggestionService) ListPending(ctx context.Context, caller *models.User) ([]models.ActionSuggestionDetail, error) {
	return s.List(ctx, caller, models.SuggestionPending)
}

// Create records a pending suggestion. A child always suggests for
// themselves; a parent must name a child of the family.
func (s *SuggestionService) Create(ctx context.Context, caller *models.User, req models.ActionSuggestionRequest) (*models.ActionSuggestion, error) {
	if _, err := familyOf(caller); err != nil {
		return nil, err
	}
	if err := validation.ValidateActionSuggestion(req); err != nil {
		return nil, err
	}

	var childID int64
	if caller.IsChild() {
		childID = caller.ID
	} else {
		if req.ChildID == nil || *req.ChildID == 0 {
			return nil, ErrChildRequired
		}
		if err := checkFamilyChild(ctx, s.store, caller, *req.ChildID); err != nil {
			return nil, err
		}
		childID = *req.ChildID
	}
	if err := checkFamilyTemplate(ctx, s.store, caller, req.ActionTemplateID); err != nil {
		return nil, err
	}

	suggestion := &models.ActionSuggestion{
		ActionTemplateID: req.ActionTemplateID,
		ChildID:          childID,
		Quantity:         1,
		Description:      req.Description,
		Date:             req.Date.Time.UTC(),
	}
	if req.Quantity != nil {
		suggestion.Quantity = *req.Quantity
	}
	if err := s.store.CreateActionSuggestion(ctx, suggestion); err != nil {
		return nil, fmt.Errorf("failed to create action suggestion: %w", err)
	}
	return suggestion, nil
}

// Approve decides a pending suggestion and creates its assigned action
// atomically. Deciding twice fails with repository.ErrAlreadyDecided.
func (s *SuggestionService) Approve(ctx context.Context, caller *models.User, id int64) (*models.ApprovedSuggestion, error) {
	if err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}
	suggestion, action, err := s.store.ApproveActionSuggestion(ctx, id, caller.ID)
	if err != nil {
		return nil, err
	}
	log.Printf("User %d approved suggestion %d as assigned action %d", caller.ID, id, action.ID)
	return &models.ApprovedSuggestion{ActionSuggestion: *suggestion, AssignedAction: action}, nil
}

// Decline decides a pending suggestion without side effects
func (s *SuggestionService) Decline(ctx context.Context, caller *models.User, id int64) (*models.ActionSuggestion, error) {
	if err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.store.DeclineActionSuggestion(ctx, id, caller.ID)
}

func (s *SuggestionService) authorize(ctx context.Context, caller *models.User, id int64) error {
	suggestion, err := s.store.GetActionSuggestion(ctx, id)
	if err != nil {
		return err
	}
	child, err := s.store.GetUser(ctx, suggestion.ChildID)
	if err != nil {
		return fmt.Errorf("failed to load child of suggestion %d: %w", id, err)
	}
	if !caller.SameFamily(child) {
		return ErrForbidden
	}
	return nil
}
