package security

import (
	"context"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func TestHashPassword(t *testing.T) {
	password := "testPassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "" || hash == password {
		t.Errorf("HashPassword() returned %q", hash)
	}

	hash2, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == hash2 {
		t.Error("HashPassword() should produce different hashes due to salt")
	}
}

func TestCheckPassword(t *testing.T) {
	password := "mySecurePassword"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "correct password", password: password, hash: hash, want: true},
		{name: "incorrect password", password: "wrongPassword", hash: hash, want: false},
		{name: "empty password", password: "", hash: hash, want: false},
		{name: "account without password", password: password, hash: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCSRFToken(t *testing.T) {
	g := NewCSRFGenerator("secret")

	token, err := g.GenerateToken("session-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if !g.ValidateToken("session-1", token) {
		t.Error("token should validate for its own session")
	}
	if g.ValidateToken("session-2", token) {
		t.Error("token must not validate for another session")
	}
	if g.ValidateToken("session-1", "") {
		t.Error("empty token must not validate")
	}
	if NewCSRFGenerator("other").ValidateToken("session-1", token) {
		t.Error("token must not validate under another secret")
	}
	if _, err := g.GenerateToken(""); err == nil {
		t.Error("GenerateToken() should reject an empty session id")
	}
}

func TestTokenManager(t *testing.T) {
	familyID := int64(4)
	m := NewTokenManager("jwt-secret", time.Hour)

	token, expiresAt, err := m.Issue(42, "parent", &familyID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("token should expire in the future")
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if id, _ := claims.UserID(); id != 42 {
		t.Errorf("UserID() = %d, want 42", id)
	}
	if claims.Role != "parent" || claims.FamilyID == nil || *claims.FamilyID != 4 {
		t.Errorf("claims = %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		if _, err := NewTokenManager("other", time.Hour).Parse(token); err != ErrInvalidToken {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewTokenManager("jwt-secret", time.Minute)
		expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
		old, _, err := expired.Issue(42, "parent", nil)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if _, err := m.Parse(old); err != ErrInvalidToken {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Parse("not.a.token"); err != ErrInvalidToken {
			t.Errorf("Parse() error = %v, want ErrInvalidToken", err)
		}
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{name: "bearer", header: "Bearer abc.def", want: "abc.def", wantOK: true},
		{name: "lowercase scheme", header: "bearer abc", want: "abc", wantOK: true},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", wantOK: false},
		{name: "missing token", header: "Bearer ", wantOK: false},
		{name: "no header", header: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/user", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(r)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("BearerToken() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSessionCookie(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/login", nil)
	r.Header.Set("X-Forwarded-Proto", "https")

	cookie := CreateSessionCookie(r, "sid", time.Now().Add(time.Hour))
	if cookie.Name != SessionCookieName || !cookie.HttpOnly || !cookie.Secure {
		t.Errorf("cookie = %+v", cookie)
	}

	r.AddCookie(cookie)
	if id, ok := SessionIDFromRequest(r); !ok || id != "sid" {
		t.Errorf("SessionIDFromRequest() = %q, %v", id, ok)
	}
}

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow(ctx, "1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := rl.Allow(ctx, "1.2.3.4"); ok {
		t.Error("third request in the window should be blocked")
	}
	if ok, _ := rl.Allow(ctx, "5.6.7.8"); !ok {
		t.Error("other clients have their own budget")
	}

	now = now.Add(time.Minute)
	if ok, _ := rl.Allow(ctx, "1.2.3.4"); !ok {
		t.Error("budget should refill after the window")
	}

	now = now.Add(5 * time.Minute)
	rl.prune()
	if len(rl.visitors) != 0 {
		t.Errorf("prune() left %d visitors", len(rl.visitors))
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	if got := GetClientIP(r); got != "10.0.0.1" {
		t.Errorf("GetClientIP() = %q, want 10.0.0.1", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	if got := GetClientIP(r); got != "203.0.113.9" {
		t.Errorf("GetClientIP() = %q, want first forwarded hop", got)
	}
}

func TestRedisRateLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := NewRedisClient(addr, os.Getenv("REDIS_PASSWORD"), 0)
	if client == nil {
		t.Skip("redis unreachable")
	}
	defer client.Close()

	ctx := context.Background()
	prefix := "familypoints-test:" + GenerateSessionID()
	limiter := NewRedisRateLimiter(client, prefix, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "client")
		if err != nil || !ok {
			t.Fatalf("request %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	if ok, _ := limiter.Allow(ctx, "client"); ok {
		t.Error("third request in the window should be blocked")
	}
}
