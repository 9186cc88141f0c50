package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"familypoints/internal/models"
	"familypoints/internal/security"
	"familypoints/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	UserContextKey    ContextKey = "user"
	SessionContextKey ContextKey = "session"
)

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	csrf        *security.CSRFGenerator
	limiter     security.Limiter
}

// NewMiddleware creates a new middleware instance. limiter may be nil to
// disable rate limiting.
func NewMiddleware(authService *service.AuthService, csrf *security.CSRFGenerator, limiter security.Limiter) *Middleware {
	return &Middleware{
		authService: authService,
		csrf:        csrf,
		limiter:     limiter,
	}
}

// RequireAuth resolves the caller from a bearer token or the session cookie
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if token, ok := security.BearerToken(r); ok {
			user, err := m.authService.ValidateToken(ctx, token)
			if err != nil {
				respondWithError(w, http.StatusUnauthorized, ErrNotAuthenticated, "", nil)
				return
			}
			next(w, r.WithContext(context.WithValue(ctx, UserContextKey, user)))
			return
		}

		sessionID, ok := security.SessionIDFromRequest(r)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, ErrNotAuthenticated, "", nil)
			return
		}
		user, err := m.authService.ValidateSession(ctx, sessionID)
		if err != nil {
			// Clear invalid cookie
			http.SetCookie(w, security.CreateDeleteCookie(r, security.SessionCookieName))
			respondWithServiceError(w, err, ErrNotAuthenticated, "Failed to validate session")
			return
		}

		ctx = context.WithValue(ctx, UserContextKey, user)
		ctx = context.WithValue(ctx, SessionContextKey, sessionID)
		next(w, r.WithContext(ctx))
	}
}

// RequireHeadOrParent allows heads and parents
func (m *Middleware) RequireHeadOrParent(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !GetUserFromContext(r.Context()).IsHeadOrParent() {
			respondWithError(w, http.StatusForbidden, ErrInsufficientPerms, "", nil)
			return
		}
		next(w, r)
	})
}

// RequireHead allows only the head of the family
func (m *Middleware) RequireHead(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !GetUserFromContext(r.Context()).IsHead() {
			respondWithError(w, http.StatusForbidden, ErrInsufficientPerms, "", nil)
			return
		}
		next(w, r)
	})
}

// CSRFProtect checks the X-CSRF-Token header on mutating requests that are
// authenticated by the session cookie. Bearer requests carry no ambient
// credentials and pass through.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next(w, r)
			return
		}

		sessionID, ok := sessionFromContext(r.Context())
		if !ok {
			next(w, r)
			return
		}
		if !m.csrf.ValidateToken(sessionID, r.Header.Get(security.CSRFHeader)) {
			respondWithError(w, http.StatusForbidden, ErrInvalidCSRFToken, "", nil)
			return
		}
		next(w, r)
	}
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil {
			next(w, r)
			return
		}
		allowed, err := m.limiter.Allow(r.Context(), r.URL.Path+"|"+security.GetClientIP(r))
		if err != nil {
			// Fail open
			log.Printf("Rate limiter error: %v", err)
			next(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", "60")
			respondWithError(w, http.StatusTooManyRequests, ErrTooManyRequests, "", nil)
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// GetUserFromContext retrieves the user from the request context
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// sessionFromContext returns the session id when the request was cookie authenticated
func sessionFromContext(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionContextKey).(string)
	return sessionID, ok
}
