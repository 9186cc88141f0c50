package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/repository"
	"familypoints/internal/security"
	"familypoints/internal/validation"
)

// AuthService handles registration, login and session business logic
type AuthService struct {
	store           repository.Store
	tokens          *security.TokenManager
	sessionDuration time.Duration
	now             func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(store repository.Store, tokens *security.TokenManager, sessionDuration time.Duration) *AuthService {
	return &AuthService{
		store:           store,
		tokens:          tokens,
		sessionDuration: sessionDuration,
		now:             time.Now,
	}
}

// LoginResult carries everything a client needs after signing in
type LoginResult struct {
	User           *models.User
	Session        *models.Session
	Token          string
	TokenExpiresAt time.Time
}

// OAuthIdentity is the profile returned by a social login provider
type OAuthIdentity struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// Register creates a new family with the user as its head, or joins the
// family of the supplied invitation with the invitation's role
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := validation.ValidateRegister(req); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
	}

	if req.InvitationToken != "" {
		if _, err := s.store.CreateUserFromInvitation(ctx, req.InvitationToken, user); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidInvitation
			}
			return nil, err
		}
		return user, nil
	}

	family := &models.Family{Name: strings.TrimSpace(req.FamilyName)}
	if err := s.store.CreateFamilyWithHead(ctx, family, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates a user and creates a session and a bearer token
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*LoginResult, error) {
	if err := validation.ValidateLogin(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !security.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.startSession(ctx, user)
}

func (s *AuthService) startSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	session := &models.Session{
		ID:        security.GenerateSessionID(),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.sessionDuration).UTC(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Role, user.FamilyID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{User: user, Session: session, Token: token, TokenExpiresAt: expiresAt}, nil
}

// ValidateSession checks if a session is valid and returns the associated user
func (s *AuthService) ValidateSession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.IsExpired(s.now()) {
		if err := s.store.DeleteSession(ctx, sessionID); err != nil {
			log.Printf("Error deleting expired session: %v", err)
		}
		return nil, ErrSessionExpired
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ValidateToken verifies a bearer token and loads the current state of its
// user, so role changes and removals take effect before the token expires
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, security.ErrInvalidToken
	}

	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, security.ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Logout invalidates a session
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to logout: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes expired sessions from the database
func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup sessions: %w", err)
	}
	return removed, nil
}

// UpdateProfile changes the caller's name, email or password. A new password
// requires the current one unless the account was created through social login.
func (s *AuthService) UpdateProfile(ctx context.Context, user *models.User, req models.ProfileRequest) (*models.User, error) {
	if err := validation.ValidateProfile(req); err != nil {
		return nil, err
	}

	var patch models.UserPatch
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		patch.Name = &name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		patch.Email = &email
	}
	if req.NewPassword != nil {
		if user.PasswordHash != "" && !security.CheckPassword(req.CurrentPassword, user.PasswordHash) {
			return nil, validation.ValidationError{Field: "currentPassword", Message: "current password is incorrect"}
		}
		hash, err := security.HashPassword(*req.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	updated, err := s.store.UpdateUser(ctx, user.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

// OAuthLogin signs in the user linked to the provider identity. Unknown
// identities either join the family of invitationToken or start a new family.
func (s *AuthService) OAuthLogin(ctx context.Context, identity OAuthIdentity, invitationToken string) (*LoginResult, error) {
	if identity.Provider == "" || identity.Subject == "" {
		return nil, errors.New("missing oauth provider information")
	}

	user, err := s.store.GetUserByOAuth(ctx, identity.Provider, identity.Subject)
	if err == nil {
		return s.startSession(ctx, user)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to lookup oauth user: %w", err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name, _, _ = strings.Cut(identity.Email, "@")
	}
	username, err := s.availableUsername(ctx, identity)
	if err != nil {
		return nil, err
	}

	user = &models.User{
		Username:      username,
		Name:          name,
		Email:         normalizeEmail(&identity.Email),
		OAuthProvider: identity.Provider,
		OAuthSubject:  identity.Subject,
	}

	if invitationToken != "" {
		if _, err := s.store.CreateUserFromInvitation(ctx, invitationToken, user); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrInvalidInvitation
			}
			return nil, fmt.Errorf("failed to create oauth user: %w", err)
		}
	} else {
		family := &models.Family{Name: name + "'s Family"}
		if err := s.store.CreateFamilyWithHead(ctx, family, user); err != nil {
			return nil, fmt.Errorf("failed to create oauth user: %w", err)
		}
	}

	log.Printf("Created %s user %d (%s)", identity.Provider, user.ID, user.Username)
	return s.startSession(ctx, user)
}

// availableUsername derives a free username from the identity's email
func (s *AuthService) availableUsername(ctx context.Context, identity OAuthIdentity) (string, error) {
	base, _, _ := strings.Cut(strings.ToLower(identity.Email), "@")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return -1
	}, base)
	if len(base) < 3 {
		base = identity.Provider + "_" + base
	}
	if len(base) > 40 {
		base = base[:40]
	}

	candidate := base
	for i := 2; i < 100; i++ {
		_, err := s.store.GetUserByUsername(ctx, candidate)
		if errors.Is(err, repository.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check username: %w", err)
		}
		candidate = base + strconv.Itoa(i)
	}
	return "", repository.ErrUsernameTaken
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	trimmed := strings.ToLower(strings.TrimSpace(*email))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
