package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	minSecretLength = 32

	defaultPort           = "8080"
	defaultReaperInterval = 5 * time.Minute
	defaultCacheTTL       = 30 * time.Second
)

// DefaultPublicPaths is the development allowlist. Production deployments
// must set PUBLIC_PATHS explicitly.
var DefaultPublicPaths = []string{
	"/",
	"/oauth2/",
	"/login",
	"/api/auth/login",
	"/api/auth/logout",
	"/api/auth/token/status",
	"/api/auth/google-login",
	"/api/core/usuarios/register",
	"/api/public/",
	"/health",
	"/metrics",
	"/error",
}

type Config struct {
	Env     string
	AppPort string

	JWTSecret string
	TokenTTL  time.Duration

	InstitutionalDomain string
	PublicPaths         []string
	ReaperInterval      time.Duration

	FrontendURL        string
	FrontendErrorURL   string
	FrontendProfileURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	KeycloakIssuer        string
	KeycloakClientID      string
	KeycloakRedirectURL   string
	KeycloakPublicBaseURL string

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	DatabaseDSN string

	LogLevel string
}

// Load reads .env files (when present) and the process environment.
// Real environment variables always win over file values.
func Load() (Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from a lookup function so tests can supply a map.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	cfg := Config{
		Env:     strings.ToLower(get("APP_ENV")),
		AppPort: get("APP_PORT"),

		JWTSecret: get("JWT_SECRET"),

		InstitutionalDomain: strings.ToLower(get("INSTITUTIONAL_DOMAIN")),

		FrontendURL:        strings.TrimRight(get("FRONTEND_URL"), "/"),
		FrontendErrorURL:   get("FRONTEND_ERROR_URL"),
		FrontendProfileURL: get("FRONTEND_PROFILE_URL"),

		GoogleClientID:     get("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  get("GOOGLE_REDIRECT_URL"),

		KeycloakIssuer:        get("KEYCLOAK_ISSUER"),
		KeycloakClientID:      get("KEYCLOAK_CLIENT_ID"),
		KeycloakRedirectURL:   get("KEYCLOAK_REDIRECT_URL"),
		KeycloakPublicBaseURL: get("KEYCLOAK_PUBLIC_BASE_URL"),

		RedisAddr:     get("REDIS_ADDR"),
		RedisPassword: get("REDIS_PASSWORD"),

		DatabaseDSN: get("DATABASE_DSN"),

		LogLevel: get("LOG_LEVEL"),
	}

	if cfg.Env == "" {
		cfg.Env = EnvDev
	}
	if cfg.Env != EnvDev && cfg.Env != EnvProd {
		return Config{}, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDev, EnvProd, cfg.Env)
	}
	if cfg.AppPort == "" {
		cfg.AppPort = defaultPort
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < minSecretLength {
		return Config{}, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength)
	}

	raw := get("JWT_EXPIRATION_MS")
	if raw == "" {
		return Config{}, errors.New("JWT_EXPIRATION_MS is required")
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return Config{}, fmt.Errorf("invalid JWT_EXPIRATION_MS %q", raw)
	}
	cfg.TokenTTL = time.Duration(ms) * time.Millisecond

	if cfg.InstitutionalDomain == "" {
		return Config{}, errors.New("INSTITUTIONAL_DOMAIN is required")
	}
	if !strings.HasPrefix(cfg.InstitutionalDomain, "@") {
		cfg.InstitutionalDomain = "@" + cfg.InstitutionalDomain
	}

	if cfg.FrontendURL == "" {
		return Config{}, errors.New("FRONTEND_URL is required")
	}
	if cfg.FrontendErrorURL == "" {
		cfg.FrontendErrorURL = cfg.FrontendURL + "/"
	}
	if cfg.FrontendProfileURL == "" {
		cfg.FrontendProfileURL = cfg.FrontendURL
	}

	if paths := get("PUBLIC_PATHS"); paths != "" {
		for _, p := range strings.Split(paths, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.PublicPaths = append(cfg.PublicPaths, p)
			}
		}
	} else if cfg.Env == EnvProd {
		return Config{}, errors.New("PUBLIC_PATHS is required when APP_ENV=prod")
	} else {
		cfg.PublicPaths = append([]string(nil), DefaultPublicPaths...)
	}

	cfg.ReaperInterval, err = secondsOr(get("REAPER_INTERVAL_SECONDS"), defaultReaperInterval)
	if err != nil {
		return Config{}, fmt.Errorf("invalid REAPER_INTERVAL_SECONDS: %w", err)
	}
	cfg.CacheTTL, err = secondsOr(get("DIRECTORY_CACHE_TTL_SECONDS"), defaultCacheTTL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DIRECTORY_CACHE_TTL_SECONDS: %w", err)
	}

	return cfg, nil
}

func secondsOr(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.New("value must be > 0")
	}
	return time.Duration(n) * time.Second, nil
}
