package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSecret = "dev-secret"
	defaultDSN    = "root:123456@tcp(127.0.0.1:3306)/app?parseTime=true&loc=UTC"
)

var ErrDefaultSecret = errors.New("SECRET_KEY and JWT_SECRET must be set in production environment")

type Config struct {
	Port        string
	Env         string
	StoreDriver string
	DatabaseDSN string
	AutoCreate  bool
	SecretKey   string
	JWTSecret   string
	JWTExpiry   time.Duration
	APIBaseURL  string
	LogFormat   string
	LogLevel    string

	SessionCookieSecure bool
	UISessionIdle       time.Duration
	UIMaxSessions       int

	RateLimitRPS   float64
	RateLimitBurst int

	Codes CodeConfig
	Email EmailConfig
}

// CodeConfig holds the verification code policy.
type CodeConfig struct {
	TTL               time.Duration
	ResendCooldown    time.Duration
	Lockout           time.Duration
	MaxAttempts       int
	MinPasswordLength int
}

// EmailConfig selects and configures the email backend.
type EmailConfig struct {
	Backend  string
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
}

func Load() Config {
	cfg, err := load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

func load() (Config, error) {
	port := getEnv("PORT", "8080")
	secret := getEnv("SECRET_KEY", defaultSecret)

	cfg := Config{
		Port:        port,
		Env:         getEnv("ENV", "development"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "mysql")),
		DatabaseDSN: getEnv("DATABASE_DSN", defaultDSN),
		AutoCreate:  getEnvBool("AUTO_CREATE_DB", true),
		SecretKey:   secret,
		JWTSecret:   getEnv("JWT_SECRET", secret),
		JWTExpiry:   getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		APIBaseURL:  strings.TrimRight(getEnv("API_BASE_URL", "http://127.0.0.1:"+port), "/"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
		UISessionIdle:       getEnvDuration("UI_SESSION_IDLE", 30*time.Minute),
		UIMaxSessions:       getEnvInt("UI_MAX_SESSIONS", 10000),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),

		Codes: CodeConfig{
			TTL:               time.Duration(getEnvInt("CODE_TTL_SECONDS", 600)) * time.Second,
			ResendCooldown:    time.Duration(getEnvInt("CODE_RESEND_COOLDOWN_SECONDS", 60)) * time.Second,
			Lockout:           time.Duration(getEnvInt("CODE_LOCKOUT_SECONDS", 600)) * time.Second,
			MaxAttempts:       getEnvInt("CODE_MAX_ATTEMPTS", 5),
			MinPasswordLength: getEnvInt("MIN_PASSWORD_LENGTH", 8),
		},
		Email: EmailConfig{
			Backend:  strings.ToLower(getEnv("EMAIL_BACKEND", "console")),
			SMTPHost: getEnv("SMTP_HOST", ""),
			SMTPPort: getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@example.com"),
		},
	}

	if cfg.Env == "production" && (cfg.SecretKey == defaultSecret || cfg.JWTSecret == defaultSecret) {
		return Config{}, ErrDefaultSecret
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("ignoring non-integer environment value", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring non-numeric environment value", "key", key, "value", v)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.EqualFold(v, "true") || v == "1"
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
