package handlers

import (
	"net/http"

	"familypoints/internal/models"
	"familypoints/internal/service"
)

// SuggestionHandler serves action suggestion routes
type SuggestionHandler struct {
	suggestionService *service.SuggestionService
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(suggestionService *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

const suggestionNotFound = "Action suggestion not found"

// List returns suggestions, optionally filtered by ?status=
func (h *SuggestionHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	suggestions, err := h.suggestionService.List(r.Context(), GetUserFromContext(r.Context()), status)
	if err != nil {
		respondWithServiceError(w, err, suggestionNotFound, "Failed to fetch action suggestions")
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// ListPending returns the family's pending suggestions
func (h *SuggestionHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.suggestionService.ListPending(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err, suggestionNotFound, "Failed to fetch pending suggestions")
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// Create records a new suggestion
func (h *SuggestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.ActionSuggestionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	suggestion, err := h.suggestionService.Create(r.Context(), GetUserFromContext(r.Context()), req)
	if err != nil {
		respondWithServiceError(w, err, suggestionNotFound, "Failed to create action suggestion")
		return
	}
	writeJSON(w, http.StatusCreated, suggestion)
}

// Approve turns a pending suggestion into an assigned action
func (h *SuggestionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	approved, err := h.suggestionService.Approve(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, err, suggestionNotFound, "Failed to approve action suggestion")
		return
	}
	writeJSON(w, http.StatusOK, approved)
}

// Decline rejects a pending suggestion
func (h *SuggestionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	declined, err := h.suggestionService.Decline(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, err, suggestionNotFound, "Failed to decline action suggestion")
		return
	}
	writeJSON(w, http.StatusOK, declined)
}
