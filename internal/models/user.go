package models

import "time"

// Roles a family member can hold
const (
	RoleHead   = "head"
	RoleParent = "parent"
	RoleChild  = "child"
)

// User represents a family member account
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	PasswordHash  string    `json:"-"`
	Name          string    `json:"name"`
	Email         *string   `json:"email"`
	Role          string    `json:"role"`
	FamilyID      *int64    `json:"familyId"`
	OAuthProvider string    `json:"-"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// IsHead reports whether the user owns their family
func (u *User) IsHead() bool {
	return u.Role == RoleHead
}

// IsHeadOrParent reports whether the user may manage chores
func (u *User) IsHeadOrParent() bool {
	return u.Role == RoleHead || u.Role == RoleParent
}

// IsChild reports whether the user has the child role
func (u *User) IsChild() bool {
	return u.Role == RoleChild
}

// InFamily reports whether the user belongs to the given family
func (u *User) InFamily(familyID int64) bool {
	return u.FamilyID != nil && *u.FamilyID == familyID
}

// SameFamily reports whether both users belong to the same family
func (u *User) SameFamily(other *User) bool {
	return other != nil && u.FamilyID != nil && other.InFamily(*u.FamilyID)
}

// UserPatch holds the profile fields a user may change on their own account
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// Session represents an authenticated session
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired at now
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ValidRole reports whether role is one of the three family roles
func ValidRole(role string) bool {
	switch role {
	case RoleHead, RoleParent, RoleChild:
		return true
	}
	return false
}
