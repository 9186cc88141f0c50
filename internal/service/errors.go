package service

import "errors"

var (
	ErrForbidden            = errors.New("insufficient permissions")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrCannotRemoveSelf     = errors.New("you cannot remove yourself")
	ErrCannotRemoveHead     = errors.New("cannot remove the head of the family")
	ErrInvalidTemplate      = errors.New("invalid action template")
	ErrInvalidChild         = errors.New("invalid child id")
	ErrChildRequired        = errors.New("child ID is required")
	ErrNoFamily             = errors.New("user is not part of a family")
	ErrChildFieldRestricted = errors.New("you can only update the completed status")
	ErrTokenRequired        = errors.New("invitation token is required")
	ErrInvalidInvitation    = errors.New("invalid invitation token")
)
