package models

import "time"

// Invitation is a single-use token that adds a parent or child to a family
type Invitation struct {
	ID         int64     `json:"id"`
	FamilyID   int64     `json:"familyId"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Token      string    `json:"token"`
	CreatedBy  *int64    `json:"createdBy"`
	CreatedAt  time.Time `json:"createdAt"`
	Accepted   bool      `json:"accepted"`
	AcceptedBy *int64    `json:"acceptedBy,omitempty"`
}

// InvitationWithURL is returned when an invitation is created through the family endpoints
type InvitationWithURL struct {
	Invitation
	InviteURL string `json:"inviteUrl"`
}

// ValidInvitationRole reports whether role may be granted by an invitation
func ValidInvitationRole(role string) bool {
	return ValidRole(role) && role != RoleHead
}
