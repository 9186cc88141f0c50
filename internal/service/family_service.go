package service

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"

	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/validation"
)

// FamilyService handles family membership and invitations
type FamilyService struct {
	store      repository.Store
	mailer     Mailer
	appBaseURL string
}

// NewFamilyService creates a new family service. mailer may be nil.
func NewFamilyService(store repository.Store, mailer Mailer, appBaseURL string) *FamilyService {
	return &FamilyService{
		store:      store,
		mailer:     mailer,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
	}
}

func familyOf(user *models.User) (int64, error) {
	if user.FamilyID == nil {
		return 0, ErrNoFamily
	}
	return *user.FamilyID, nil
}

// GetFamily returns the caller's family with its members
func (s *FamilyService) GetFamily(ctx context.Context, caller *models.User) (*models.FamilyWithMembers, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return nil, err
	}
	family, err := s.store.GetFamily(ctx, familyID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.GetFamilyMembers(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return &models.FamilyWithMembers{Family: *family, Members: members}, nil
}

// GetMembers lists the members of the caller's family
func (s *FamilyService) GetMembers(ctx context.Context, caller *models.User) ([]models.User, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return nil, err
	}
	return s.store.GetFamilyMembers(ctx, familyID)
}

// RemoveMember deletes a member of the caller's family. Nobody can remove
// themselves or a head.
func (s *FamilyService) RemoveMember(ctx context.Context, caller *models.User, memberID int64) error {
	member, err := s.store.GetUser(ctx, memberID)
	if err != nil {
		return err
	}
	if !caller.SameFamily(member) {
		return ErrForbidden
	}
	if member.ID == caller.ID {
		return ErrCannotRemoveSelf
	}
	if member.IsHead() {
		return ErrCannotRemoveHead
	}

	if err := s.store.RemoveFamilyMember(ctx, member.ID); err != nil {
		return fmt.Errorf("failed to remove family member: %w", err)
	}
	log.Printf("User %d removed member %d from family %d", caller.ID, member.ID, *caller.FamilyID)
	return nil
}

// ListInvitations returns the invitations of the caller's family, newest first
func (s *FamilyService) ListInvitations(ctx context.Context, caller *models.User) ([]models.Invitation, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return nil, err
	}
	return s.store.ListInvitations(ctx, familyID)
}

// CreateInvitation stores a new invitation and emails the invitee when email
// is configured. A failed email does not fail the invitation.
func (s *FamilyService) CreateInvitation(ctx context.Context, caller *models.User, req models.InvitationRequest) (*models.InvitationWithURL, error) {
	familyID, err := familyOf(caller)
	if err != nil {
		return nil, err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.ValidateInvitation(req); err != nil {
		return nil, err
	}

	inv := &models.Invitation{
		FamilyID:  familyID,
		Email:     req.Email,
		Role:      req.Role,
		CreatedBy: &caller.ID,
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	result := &models.InvitationWithURL{Invitation: *inv, InviteURL: s.InviteURL(inv.Token)}

	if s.mailer != nil && s.mailer.IsEnabled() {
		familyName := "your family"
		if family, err := s.store.GetFamily(ctx, familyID); err == nil {
			familyName = family.Name
		}
		if err := s.mailer.SendInvitationEmail(ctx, inv.Email, familyName, inv.Role, s.appBaseURL+result.InviteURL); err != nil {
			log.Printf("Failed to send invitation email for invitation %d: %v", inv.ID, err)
		}
	}
	return result, nil
}

// InviteURL is the path that accepts the invitation with token
func (s *FamilyService) InviteURL(token string) string {
	return "/api/family/accept-invite?token=" + url.QueryEscape(token)
}

// AcceptInvitation marks the invitation accepted. It succeeds once per token.
func (s *FamilyService) AcceptInvitation(ctx context.Context, token string) (*models.Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}
	return s.store.AcceptInvitation(ctx, token)
}
