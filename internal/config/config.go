package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	ServerPort     string `envconfig:"PORT" default:"8080"`
	DatabaseType   string `envconfig:"DB_TYPE" default:"sqlite"`
	DatabasePath   string `envconfig:"DB_PATH" default:"./familypoints.db"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH"`

	SessionDuration time.Duration `envconfig:"SESSION_DURATION" default:"168h"`
	JWTSecret       string        `envconfig:"JWT_SECRET" default:"familypoints-dev-secret"`
	TokenTTL        time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	CSRFSecret      string        `envconfig:"CSRF_SECRET" default:"familypoints-dev-csrf"`

	AppBaseURL   string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`
	SESFromEmail string `envconfig:"SES_FROM_EMAIL"`
	SESFromName  string `envconfig:"SES_FROM_NAME" default:"Family Points"`

	GoogleClientID       string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `envconfig:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `envconfig:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `envconfig:"FACEBOOK_CLIENT_SECRET"`
	OAuthRedirectBaseURL string `envconfig:"OAUTH_REDIRECT_BASE_URL"`

	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	RedisPassword   string        `envconfig:"REDIS_PASSWORD"`
	RedisDB         int           `envconfig:"REDIS_DB" default:"0"`
	LoginRateLimit  int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"1m"`

	Debug bool `envconfig:"DEBUG" default:"false"`
}

// Load reads configuration from environment variables with defaults.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env vars: %w", err)
	}
	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")
	return cfg, nil
}
