package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"familypoints/internal/models"
	"familypoints/internal/service"
)

// ActionHandler serves action template and assigned action routes
type ActionHandler struct {
	actionService *service.ActionService
}

// NewActionHandler creates a new action handler
func NewActionHandler(actionService *service.ActionService) *ActionHandler {
	return &ActionHandler{actionService: actionService}
}

const (
	templateNotFound = "Action template not found"
	actionNotFound   = "Assigned action not found"
)

// ListTemplates returns the family's action templates
func (h *ActionHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.actionService.ListTemplates(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err, templateNotFound, "Failed to fetch action templates")
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// CreateTemplate adds an action template
func (h *ActionHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req models.ActionTemplateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	template, err := h.actionService.CreateTemplate(r.Context(), GetUserFromContext(r.Context()), req)
	if err != nil {
		respondWithServiceError(w, err, templateNotFound, "Failed to create action template")
		return
	}
	writeJSON(w, http.StatusCreated, template)
}

// UpdateTemplate applies a partial update to a template
func (h *ActionHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	var req models.ActionTemplatePatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	template, err := h.actionService.UpdateTemplate(r.Context(), GetUserFromContext(r.Context()), id, req)
	if err != nil {
		respondWithServiceError(w, err, templateNotFound, "Failed to update action template")
		return
	}
	writeJSON(w, http.StatusOK, template)
}

// DeleteTemplate removes a template
func (h *ActionHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	if err := h.actionService.DeleteTemplate(r.Context(), GetUserFromContext(r.Context()), id); err != nil {
		respondWithServiceError(w, err, templateNotFound, "Failed to delete action template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAssigned returns the assigned actions visible to the caller
func (h *ActionHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	actions, err := h.actionService.ListAssigned(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err, actionNotFound, "Failed to fetch assigned actions")
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// ListToday returns the assigned actions dated today
func (h *ActionHandler) ListToday(w http.ResponseWriter, r *http.Request) {
	actions, err := h.actionService.ListToday(r.Context(), GetUserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, err, actionNotFound, "Failed to fetch today's assigned actions")
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// CreateAssigned assigns a template to a child
func (h *ActionHandler) CreateAssigned(w http.ResponseWriter, r *http.Request) {
	var req models.AssignedActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	action, err := h.actionService.CreateAssigned(r.Context(), GetUserFromContext(r.Context()), req)
	if err != nil {
		respondWithServiceError(w, err, actionNotFound, "Failed to create assigned action")
		return
	}
	writeJSON(w, http.StatusCreated, action)
}

// UpdateAssigned applies a partial update. The body is read twice: once for
// its keys, once into the typed request.
func (h *ActionHandler) UpdateAssigned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}
	var raw map[string]json.RawMessage
	var req models.AssignedActionPatchRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
			return
		}
		if err := json.Unmarshal(body, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
			return
		}
	}
	fields := make([]string, 0, len(raw))
	for key := range raw {
		fields = append(fields, key)
	}

	action, err := h.actionService.UpdateAssigned(r.Context(), GetUserFromContext(r.Context()), id, fields, req)
	if err != nil {
		respondWithServiceError(w, err, actionNotFound, "Failed to update assigned action")
		return
	}
	writeJSON(w, http.StatusOK, action)
}

// CompleteAssigned marks an action completed
func (h *ActionHandler) CompleteAssigned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	action, err := h.actionService.CompleteAssigned(r.Context(), GetUserFromContext(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, err, actionNotFound, "Failed to complete assigned action")
		return
	}
	writeJSON(w, http.StatusOK, action)
}

// DeleteAssigned removes an assigned action
func (h *ActionHandler) DeleteAssigned(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	if err := h.actionService.DeleteAssigned(r.Context(), GetUserFromContext(r.Context()), id); err != nil {
		respondWithServiceError(w, err, actionNotFound, "Failed to delete assigned action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
