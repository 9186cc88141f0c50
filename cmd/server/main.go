package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"

	"familypoints/internal/config"
	"familypoints/internal/database"
	"familypoints/internal/handlers"
	"familypoints/internal/repository"
	"familypoints/internal/security"
	"familypoints/internal/service"
	"familypoints/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	if err := db.RunMigrations(ctx, migrations.Source(cfg.MigrationsPath)); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	store := repository.NewSQLStore(db)

	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.Debug)
	if err != nil {
		log.Printf("Warning: email disabled: %v", err)
	}

	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)

	authService := service.NewAuthService(store, tokens, cfg.SessionDuration)
	var mailer service.Mailer
	if emailService != nil {
		mailer = emailService
	}
	familyService := service.NewFamilyService(store, mailer, cfg.AppBaseURL)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"facebook": {
			Name:  "facebook",
			Label: "Facebook",
			Config: &oauth2.Config{
				ClientID:     cfg.FacebookClientID,
				ClientSecret: cfg.FacebookClientSecret,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		},
	}

	router := &handlers.Router{
		Middleware:  handlers.NewMiddleware(authService, csrf, newLimiter(ctx, cfg)),
		Auth:        handlers.NewAuthHandler(authService, csrf, oauthProviders, cfg.OAuthRedirectBaseURL),
		Family:      handlers.NewFamilyHandler(familyService),
		Actions:     handlers.NewActionHandler(service.NewActionService(store)),
		Suggestions: handlers.NewSuggestionHandler(service.NewSuggestionService(store)),
		Reports:     handlers.NewReportHandler(service.NewReportService(store)),
	}

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(ctx, authService)

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}

// newLimiter returns the Redis limiter when Redis is reachable and the
// in-process limiter otherwise
func newLimiter(ctx context.Context, cfg *config.Config) security.Limiter {
	if client := security.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); client != nil {
		log.Printf("Using Redis rate limiting at %s", cfg.RedisAddr)
		return security.NewRedisRateLimiter(client, "familypoints:ratelimit", cfg.LoginRateLimit, cfg.LoginRateWindow)
	}
	limiter := security.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	go limiter.Cleanup(ctx, 5*time.Minute)
	return limiter
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := authService.CleanupExpiredSessions(ctx)
			if err != nil {
				log.Printf("Error cleaning up expired sessions: %v", err)
				continue
			}
			log.Printf("Expired sessions cleaned up: %d", removed)
		}
	}
}
