package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"familypoints/internal/repository"
	"familypoints/internal/security"
	"familypoints/internal/service"
	"familypoints/internal/validation"
)

type errorResponse struct {
	Message string             `json:"message"`
	Errors  validation.Errors `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	writeJSON(w, status, errorResponse{Message: userMsg})
}

// respondWithServiceError maps a service or repository error to its HTTP
// status. notFound is the message for a missing row; failure is the generic
// message returned when the error is unexpected.
func respondWithServiceError(w http.ResponseWriter, err error, notFound, failure string) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrValidationFailed, Errors: verrs})
		return
	}
	var verr validation.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: ErrValidationFailed, Errors: validation.Errors{verr}})
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondWithError(w, http.StatusNotFound, notFound, "", nil)
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, ErrInsufficientPerms, "", nil)
	case errors.Is(err, service.ErrChildFieldRestricted):
		respondWithError(w, http.StatusForbidden, "You can only update the completed status", "", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid username or password", "", nil)
	case errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSessionExpired):
		respondWithError(w, http.StatusUnauthorized, ErrNotAuthenticated, "", nil)
	case errors.Is(err, repository.ErrAlreadyDecided):
		respondWithError(w, http.StatusBadRequest, ErrSuggestionProcessed, "", nil)
	case errors.Is(err, repository.ErrAlreadyAccepted):
		respondWithError(w, http.StatusBadRequest, ErrInvitationAccepted, "", nil)
	case errors.Is(err, repository.ErrInvitationUsed):
		respondWithError(w, http.StatusBadRequest, "Invitation has already been used", "", nil)
	case errors.Is(err, repository.ErrUsernameTaken):
		respondWithError(w, http.StatusBadRequest, ErrUsernameAlreadyExists, "", nil)
	case errors.Is(err, repository.ErrDuplicate):
		respondWithError(w, http.StatusBadRequest, "Resource already exists", "", nil)
	case errors.Is(err, service.ErrNoFamily):
		respondWithError(w, http.StatusBadRequest, ErrUserNotInFamily, "", nil)
	case errors.Is(err, service.ErrCannotRemoveSelf):
		respondWithError(w, http.StatusBadRequest, "You cannot remove yourself", "", nil)
	case errors.Is(err, service.ErrCannotRemoveHead):
		respondWithError(w, http.StatusBadRequest, "Cannot remove the head of the family", "", nil)
	case errors.Is(err, service.ErrInvalidTemplate):
		respondWithError(w, http.StatusBadRequest, "Invalid action template", "", nil)
	case errors.Is(err, service.ErrInvalidChild):
		respondWithError(w, http.StatusBadRequest, "Invalid child id", "", nil)
	case errors.Is(err, service.ErrChildRequired):
		respondWithError(w, http.StatusBadRequest, "Child ID is required", "", nil)
	case errors.Is(err, service.ErrTokenRequired):
		respondWithError(w, http.StatusBadRequest, "Invitation token is required", "", nil)
	case errors.Is(err, service.ErrInvalidInvitation):
		respondWithError(w, http.StatusBadRequest, "Invalid invitation token", "", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, failure, "", err)
	}
}
