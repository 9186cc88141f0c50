package handlers

import (
	"log"
	"net/http"

	"familypoints/internal/models"
	"familypoints/internal/service"
)

// FamilyHandler serves family membership and invitation routes
type FamilyHandler struct {
	familyService *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(familyService *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{familyService: familyService}
}

// GetFamily returns the caller's family with its members
func (h *FamilyHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	family, err := h.familyService.GetFamily(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err, "Family not found", "Failed to fetch family")
		return
	}
	writeJSON(w, http.StatusOK, family)
}

// ListMembers returns the members of the caller's family
func (h *FamilyHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.familyService.GetMembers(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err, "Family not found", "Failed to fetch family members")
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// RemoveMember deletes a member of the caller's family
func (h *FamilyHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	if err := h.familyService.RemoveMember(r.Context(), GetUserFromContext(r.Context()), id); err != nil {
		respondWithServiceError(w, err, "Member not found", "Failed to remove family member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListInvitations returns the family's invitations, newest first
func (h *FamilyHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := h.familyService.ListInvitations(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err, "Family not found", "Failed to fetch invitations")
		return
	}
	writeJSON(w, http.StatusOK, invitations)
}

// CreateInvitation invites an email address as parent or child
func (h *FamilyHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req models.InvitationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	caller := GetUserFromContext(r.Context())
	invitation, err := h.familyService.CreateInvitation(r.Context(), caller, req)
	if err != nil {
		respondWithServiceError(w, err, "Family not found", "Failed to create invitation")
		return
	}
	log.Printf("User %d invited %s as %s", caller.ID, invitation.Email, invitation.Role)
	writeJSON(w, http.StatusCreated, invitation)
}

// AcceptInvitation accepts the invitation named in the path
func (h *FamilyHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, r.PathValue("token"))
}

// AcceptInvite accepts the invitation named by the token query parameter
func (h *FamilyHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, r.URL.Query().Get("token"))
}

func (h *FamilyHandler) accept(w http.ResponseWriter, r *http.Request, token string) {
	invitation, err := h.familyService.AcceptInvitation(r.Context(), token)
	if err != nil {
		respondWithServiceError(w, err, ErrInvitationNotFound, "Failed to accept invitation")
		return
	}
	writeJSON(w, http.StatusOK, invitation)
}
