package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/repository"
)

func seed(t *testing.T) (*Store, *models.User, *models.User, *models.ActionTemplate) {
	t.Helper()
	ctx := context.Background()
	s := New()

	family := &models.Family{Name: "Smith"}
	head := &models.User{Username: "mum", Name: "Mum"}
	if err := s.CreateFamilyWithHead(ctx, family, head); err != nil {
		t.Fatalf("CreateFamilyWithHead() error = %v", err)
	}
	child := &models.User{Username: "kid", Name: "Kid", Role: models.RoleChild, FamilyID: &family.ID}
	if err := s.CreateUser(ctx, child); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	template := &models.ActionTemplate{FamilyID: family.ID, Name: "Dishes", Points: 4}
	if err := s.CreateActionTemplate(ctx, template); err != nil {
		t.Fatalf("CreateActionTemplate() error = %v", err)
	}
	return s, head, child, template
}

func TestApproveIsSingleShot(t *testing.T) {
	s, head, child, template := seed(t)
	ctx := context.Background()

	sg := &models.ActionSuggestion{ActionTemplateID: template.ID, ChildID: child.ID, Quantity: 2, Date: time.Now()}
	if err := s.CreateActionSuggestion(ctx, sg); err != nil {
		t.Fatalf("CreateActionSuggestion() error = %v", err)
	}

	approved, action, err := s.ApproveActionSuggestion(ctx, sg.ID, head.ID)
	if err != nil {
		t.Fatalf("ApproveActionSuggestion() error = %v", err)
	}
	if approved.Status != models.SuggestionApproved || action.Completed || action.Quantity != 2 {
		t.Errorf("approved = %+v, action = %+v", approved, action)
	}
	if _, _, err := s.ApproveActionSuggestion(ctx, sg.ID, head.ID); !errors.Is(err, repository.ErrAlreadyDecided) {
		t.Errorf("second approve error = %v, want ErrAlreadyDecided", err)
	}
	if _, err := s.DeclineActionSuggestion(ctx, 999, head.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("decline missing error = %v, want ErrNotFound", err)
	}

	list, _ := s.ListAssignedActions(ctx, repository.ActionFilter{ChildID: child.ID})
	if len(list) != 1 || list[0].TotalPoints != 8 {
		t.Errorf("actions = %+v", list)
	}
}

func TestTemplateDeleteCascades(t *testing.T) {
	s, head, child, template := seed(t)
	ctx := context.Background()

	action := &models.AssignedAction{ActionTemplateID: template.ID, ChildID: child.ID, AssignedBy: &head.ID, Date: time.Now()}
	if err := s.CreateAssignedAction(ctx, action); err != nil {
		t.Fatalf("CreateAssignedAction() error = %v", err)
	}
	if action.Quantity != 1 {
		t.Errorf("Quantity = %d, want default 1", action.Quantity)
	}

	if err := s.DeleteActionTemplate(ctx, template.ID); err != nil {
		t.Fatalf("DeleteActionTemplate() error = %v", err)
	}
	if _, err := s.GetAssignedAction(ctx, action.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("action survived template delete: %v", err)
	}
}

func TestPointsForPeriod(t *testing.T) {
	s, head, child, template := seed(t)
	ctx := context.Background()

	penalty := &models.ActionTemplate{FamilyID: *child.FamilyID, Name: "Shouting", Points: -3}
	if err := s.CreateActionTemplate(ctx, penalty); err != nil {
		t.Fatalf("CreateActionTemplate() error = %v", err)
	}

	day := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	for _, a := range []*models.AssignedAction{
		{ActionTemplateID: template.ID, ChildID: child.ID, Quantity: 2, Date: day, Completed: true},
		{ActionTemplateID: template.ID, ChildID: child.ID, Quantity: 5, Date: day},
		{ActionTemplateID: penalty.ID, ChildID: child.ID, Quantity: 1, Date: day, Completed: true, AssignedBy: &head.ID},
		{ActionTemplateID: template.ID, ChildID: child.ID, Quantity: 1, Date: day.AddDate(0, 1, 0), Completed: true},
	} {
		if err := s.CreateAssignedAction(ctx, a); err != nil {
			t.Fatalf("CreateAssignedAction() error = %v", err)
		}
	}

	points, err := s.GetChildPointsForPeriod(ctx, child.ID, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("GetChildPointsForPeriod() error = %v", err)
	}
	if points != 5 {
		t.Errorf("points = %v, want 5", points)
	}
}

func TestInvitationLifecycle(t *testing.T) {
	s, head, _, _ := seed(t)
	ctx := context.Background()

	inv := &models.Invitation{FamilyID: *head.FamilyID, Email: "x@y.com", Role: models.RoleParent, CreatedBy: &head.ID}
	if err := s.CreateInvitation(ctx, inv); err != nil {
		t.Fatalf("CreateInvitation() error = %v", err)
	}
	if _, err := s.AcceptInvitation(ctx, inv.Token); err != nil {
		t.Fatalf("AcceptInvitation() error = %v", err)
	}
	if _, err := s.AcceptInvitation(ctx, inv.Token); !errors.Is(err, repository.ErrAlreadyAccepted) {
		t.Errorf("second accept error = %v, want ErrAlreadyAccepted", err)
	}

	user := &models.User{Username: "dad", Name: "Dad"}
	if _, err := s.CreateUserFromInvitation(ctx, inv.Token, user); err != nil {
		t.Fatalf("CreateUserFromInvitation() error = %v", err)
	}
	if user.Role != models.RoleParent || !user.SameFamily(head) {
		t.Errorf("user = %+v", user)
	}
	if _, err := s.CreateUserFromInvitation(ctx, inv.Token, &models.User{Username: "dad2"}); !errors.Is(err, repository.ErrInvitationUsed) {
		t.Errorf("reuse error = %v, want ErrInvitationUsed", err)
	}
}

func TestSecondHeadRejected(t *testing.T) {
	s, head, _, _ := seed(t)
	other := &models.User{Username: "gran", Name: "Gran", Role: models.RoleHead, FamilyID: head.FamilyID}
	if err := s.CreateUser(context.Background(), other); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("CreateUser() error = %v, want ErrDuplicate", err)
	}
}
