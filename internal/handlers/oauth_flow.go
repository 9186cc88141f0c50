package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"familypoints/internal/security"
	"familypoints/internal/service"
)

const oauthCookieTTL = 10 * time.Minute

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthProviderView struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// OAuthProviders lists the configured providers and their start URLs
func (h *AuthHandler) OAuthProviders(w http.ResponseWriter, r *http.Request) {
	invitationToken := r.URL.Query().Get("invitationToken")

	views := []oauthProviderView{}
	for _, key := range slices.Sorted(maps.Keys(h.oauthProviders)) {
		provider := h.oauthProviders[key]
		if !provider.configured() {
			continue
		}
		startURL := fmt.Sprintf("/api/auth/%s/start", key)
		if invitationToken != "" {
			startURL += "?" + url.Values{"invitationToken": []string{invitationToken}}.Encode()
		}
		views = append(views, oauthProviderView{Name: key, Label: provider.Label, URL: startURL})
	}
	writeJSON(w, http.StatusOK, views)
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state := security.GenerateSessionID()
	h.setTempCookie(w, r, "oauth_state", state, oauthCookieTTL)
	h.setTempCookie(w, r, "oauth_provider", providerKey, oauthCookieTTL)
	if token := r.URL.Query().Get("invitationToken"); token != "" {
		h.setTempCookie(w, r, "oauth_invitation", token, oauthCookieTTL)
	}

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		respondWithError(w, http.StatusBadRequest, "Invalid OAuth state", "", nil)
		return
	}
	if providerCookie, err := r.Cookie("oauth_provider"); err == nil && providerCookie.Value != providerKey {
		respondWithError(w, http.StatusBadRequest, "OAuth provider mismatch", "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to exchange OAuth code", "OAuth exchange failed", err)
		return
	}

	identity, err := fetchOAuthIdentity(ctx, providerKey, provider, token)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to fetch OAuth profile", "OAuth profile fetch failed", err)
		return
	}

	invitationToken := ""
	if cookie, err := r.Cookie("oauth_invitation"); err == nil {
		invitationToken = cookie.Value
	}

	// Clear temporary OAuth cookies
	h.clearTempCookie(w, r, "oauth_state")
	h.clearTempCookie(w, r, "oauth_provider")
	h.clearTempCookie(w, r, "oauth_invitation")

	result, err := h.authService.OAuthLogin(r.Context(), identity, invitationToken)
	if err != nil {
		respondWithServiceError(w, err, ErrInvitationNotFound, "Failed to sign in")
		return
	}
	log.Printf("User %d signed in with %s", result.User.ID, providerKey)

	http.SetCookie(w, security.CreateSessionCookie(r, result.Session.ID, result.Session.ExpiresAt))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func fetchOAuthIdentity(ctx context.Context, providerKey string, provider OAuthProvider, token *oauth2.Token) (service.OAuthIdentity, error) {
	switch providerKey {
	case "google", "facebook":
	default:
		return service.OAuthIdentity{}, errors.New("unsupported OAuth provider")
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return service.OAuthIdentity{}, fmt.Errorf("failed to fetch %s user info: %w", provider.Label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.OAuthIdentity{}, fmt.Errorf("failed to fetch %s user info: status %d", provider.Label, resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return service.OAuthIdentity{}, fmt.Errorf("failed to parse %s user info: %w", provider.Label, err)
	}
	if payload.ID == "" || payload.Email == "" {
		return service.OAuthIdentity{}, fmt.Errorf("%s did not return an email address", provider.Label)
	}

	return service.OAuthIdentity{
		Provider: providerKey,
		Subject:  payload.ID,
		Email:    payload.Email,
		Name:     payload.Name,
	}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/api/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func (h *AuthHandler) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
	})
}

func (h *AuthHandler) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, security.CreateDeleteCookie(r, name))
}
