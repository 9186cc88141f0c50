package models

// RegisterRequest creates a family with its head, or joins a family
// when InvitationToken is set.
type RegisterRequest struct {
	Username        string  `json:"username"`
	Password        string  `json:"password"`
	Name            string  `json:"name"`
	Email           *string `json:"email"`
	FamilyName      string  `json:"familyName"`
	InvitationToken string  `json:"invitationToken"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProfileRequest updates the caller's own account
type ProfileRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     *string `json:"newPassword"`
}

type InvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type ActionTemplateRequest struct {
	Name        string   `json:"name"`
	Points      *float64 `json:"points"`
	Description *string  `json:"description"`
}

type ActionTemplatePatchRequest struct {
	Name        *string  `json:"name"`
	Points      *float64 `json:"points"`
	Description *string  `json:"description"`
}

type AssignedActionRequest struct {
	ActionTemplateID int64     `json:"actionTemplateId"`
	ChildID          int64     `json:"childId"`
	Quantity         *int      `json:"quantity"`
	Date             *FlexTime `json:"date"`
	Description      *string   `json:"description"`
}

type AssignedActionPatchRequest struct {
	ActionTemplateID *int64    `json:"actionTemplateId"`
	ChildID          *int64    `json:"childId"`
	Quantity         *int      `json:"quantity"`
	Date             *FlexTime `json:"date"`
	Description      *string   `json:"description"`
	Completed        *bool     `json:"completed"`
}

// ToPatch converts the request into a store patch
func (r AssignedActionPatchRequest) ToPatch() AssignedActionPatch {
	patch := AssignedActionPatch{
		ActionTemplateID: r.ActionTemplateID,
		ChildID:          r.ChildID,
		Quantity:         r.Quantity,
		Description:      r.Description,
		Completed:        r.Completed,
	}
	if r.Date != nil && !r.Date.IsZero() {
		d := r.Date.Time.UTC()
		patch.Date = &d
	}
	return patch
}

type ActionSuggestionRequest struct {
	ActionTemplateID int64     `json:"actionTemplateId"`
	ChildID          *int64    `json:"childId"`
	Quantity         *int      `json:"quantity"`
	Date             *FlexTime `json:"date"`
	Description      *string   `json:"description"`
}
