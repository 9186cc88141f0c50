package handlers

const (
	ErrNotAuthenticated      = "Not authenticated"
	ErrInsufficientPerms     = "Insufficient permissions"
	ErrInvalidRequestBody    = "Invalid request body"
	ErrInvalidParameters     = "Invalid parameters"
	ErrInvalidID             = "Invalid id"
	ErrValidationFailed      = "Validation failed"
	ErrTooManyRequests       = "Too many requests, please try again later"
	ErrInvalidCSRFToken      = "Invalid CSRF token"
	ErrInternalServerError   = "Internal server error"
	ErrUserNotInFamily       = "User is not part of a family"
	ErrSuggestionProcessed   = "This suggestion has already been processed"
	ErrInvitationAccepted    = "Invitation has already been accepted"
	ErrInvitationNotFound    = "Invitation not found"
	ErrUsernameAlreadyExists = "Username already exists"
)

const maxBodyBytes = 1 << 20
