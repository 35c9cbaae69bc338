package config

import (
	"encoding/hex"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kuitang/authflow-e2e/internal/ratelimit"
)

// AppConfig configures the reference authentication app served by
// cmd/authapp and booted by `e2e run --local`.
type AppConfig struct {
	ListenAddr string
	BaseURL    string

	// Database
	DatabasePath    string // empty keeps the users table in memory
	DatabaseKey     string // 64 hex characters; encrypts the file with SQLCipher
	SeedDemoAccount bool   // create user / user@example.com / 123456 on startup
	SessionDuration time.Duration

	// Login / registration throttle
	RateLimitConfig ratelimit.Config

	// Resend Email
	NoEmail         bool
	ResendAPIKey    string
	ResendFromEmail string
}

// ParseAppFlags parses cmd/authapp flags. Call before LoadAppConfig.
func ParseAppFlags() (noEmail bool, addr string) {
	flag.BoolVar(&noEmail, "no-email", false, "Use mock email service (logs emails instead of sending)")
	flag.StringVar(&addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	flag.Parse()
	return noEmail, addr
}

// LoadAppConfig loads the reference app configuration from environment
// variables and CLI flag values.
func LoadAppConfig(noEmail bool, addr string) (*AppConfig, error) {
	cfg := &AppConfig{NoEmail: noEmail}

	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if addr != "" {
		cfg.ListenAddr = addr
	}
	cfg.BaseURL = strings.TrimSpace(os.Getenv("BASE_URL"))
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost" + cfg.ListenAddr
	}

	cfg.DatabasePath = strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	cfg.DatabaseKey = strings.TrimSpace(os.Getenv("DATABASE_KEY"))
	cfg.SeedDemoAccount = parseBoolOrDefault("SEED_DEMO_ACCOUNT", true)
	cfg.SessionDuration = parseDurationOrDefault("SESSION_DURATION", 24*time.Hour)

	cfg.RateLimitConfig = ratelimit.Config{
		RPS:             parseFloat64OrDefault("RATE_LIMIT_RPS", ratelimit.DefaultConfig.RPS),
		Burst:           parseIntOrDefault("RATE_LIMIT_BURST", ratelimit.DefaultConfig.Burst),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", time.Hour),
	}

	cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.ResendFromEmail = getEnvOrDefault("RESEND_FROM_EMAIL", "noreply@authflow.local")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *AppConfig) Validate() error {
	var errs []string

	if !c.NoEmail && c.ResendAPIKey == "" {
		errs = append(errs, "RESEND_API_KEY is required (set env var or use --no-email)")
	}

	if c.DatabaseKey != "" {
		if c.DatabasePath == "" {
			errs = append(errs, "DATABASE_KEY needs DATABASE_PATH (in-memory databases are not encrypted)")
		}
		if _, err := hex.DecodeString(c.DatabaseKey); err != nil || len(c.DatabaseKey) != 64 {
			errs = append(errs, "DATABASE_KEY must be 64 hex characters (32 bytes)")
		}
	}

	if c.SessionDuration <= 0 {
		errs = append(errs, "SESSION_DURATION must be positive")
	}
	if c.RateLimitConfig.RPS <= 0 {
		errs = append(errs, "RATE_LIMIT_RPS must be positive")
	}
	if c.RateLimitConfig.Burst <= 0 {
		errs = append(errs, "RATE_LIMIT_BURST must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// RequireSecureCookies returns false for localhost development URLs.
func (c *AppConfig) RequireSecureCookies() bool {
	return !strings.HasPrefix(c.BaseURL, "http://localhost") &&
		!strings.HasPrefix(c.BaseURL, "http://127.0.0.1")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
