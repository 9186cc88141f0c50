package repository

import "errors"

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyDecided is returned when approving or declining a suggestion that is no longer pending
	ErrAlreadyDecided = errors.New("suggestion has already been processed")
	// ErrAlreadyAccepted is returned when accepting an invitation a second time
	ErrAlreadyAccepted = errors.New("invitation has already been accepted")
	// ErrInvitationUsed is returned when an invitation token already created an account
	ErrInvitationUsed = errors.New("invitation has already been used")
	// ErrUsernameTaken is returned when the username is already registered
	ErrUsernameTaken = errors.New("username already taken")
	// ErrDuplicate is returned for any other unique constraint violation
	ErrDuplicate = errors.New("duplicate value")
)
