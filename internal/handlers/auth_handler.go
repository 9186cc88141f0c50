package handlers

import (
	"log"
	"net/http"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/security"
	"familypoints/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	csrf                 *security.CSRFGenerator
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, csrf *security.CSRFGenerator, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		csrf:                 csrf,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
	}
}

type loginResponse struct {
	User           *models.User `json:"user"`
	Token          string       `json:"token"`
	TokenExpiresAt time.Time    `json:"tokenExpiresAt"`
	CSRFToken      string       `json:"csrfToken"`
}

type userResponse struct {
	*models.User
	CSRFToken string `json:"csrfToken,omitempty"`
}

// Register creates an account and signs it in
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, ErrInvitationNotFound, "Failed to register")
		return
	}
	log.Printf("Registered user %d (%s) as %s", user.ID, user.Username, user.Role)

	// Auto-login after registration
	result, err := h.authService.Login(r.Context(), models.LoginRequest{Username: user.Username, Password: req.Password})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Login after registration failed", err)
		return
	}
	h.writeLogin(w, r, http.StatusCreated, result)
}

// Login handles credential login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		respondWithServiceError(w, err, "User not found", "Failed to login")
		return
	}
	h.writeLogin(w, r, http.StatusOK, result)
}

func (h *AuthHandler) writeLogin(w http.ResponseWriter, r *http.Request, status int, result *service.LoginResult) {
	csrfToken, err := h.csrf.GenerateToken(result.Session.ID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to generate CSRF token", err)
		return
	}

	http.SetCookie(w, security.CreateSessionCookie(r, result.Session.ID, result.Session.ExpiresAt))
	writeJSON(w, status, loginResponse{
		User:           result.User,
		Token:          result.Token,
		TokenExpiresAt: result.TokenExpiresAt,
		CSRFToken:      csrfToken,
	})
}

// Logout deletes the session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := security.SessionIDFromRequest(r); ok {
		if err := h.authService.Logout(r.Context(), sessionID); err != nil {
			log.Printf("Error deleting session: %v", err)
		}
	}

	http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
	w.WriteHeader(http.StatusNoContent)
}

// CurrentUser returns the authenticated user and, for cookie sessions, the CSRF token
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	resp := userResponse{User: GetUserFromContext(r.Context())}
	if sessionID, ok := sessionFromContext(r.Context()); ok {
		token, err := h.csrf.GenerateToken(sessionID)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Failed to generate CSRF token", err)
			return
		}
		resp.CSRFToken = token
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateProfile changes the caller's name, email or password
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrInvalidRequestBody, "", nil)
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), GetUserFromContext(r.Context()), req)
	if err != nil {
		respondWithServiceError(w, err, "User not found", "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
