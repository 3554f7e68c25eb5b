package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Security      SecurityConfig
	Tokens        TokenConfig
	RateLimit     RateLimitConfig
	Mail          MailConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Database       string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	AcquireTimeout time.Duration
}

// AuthConfig holds session token configuration.
// SigningKey is required; the process refuses to start without it.
type AuthConfig struct {
	SigningKey      string
	SessionLifetime time.Duration
}

// SecurityConfig holds password hashing parameters
type SecurityConfig struct {
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
}

// TokenConfig holds single-use token lifetimes
type TokenConfig struct {
	ResetTTL  time.Duration
	InviteTTL time.Duration
}

// RateLimitConfig holds rate limiting configuration.
// RequestsPerSecond/Burst drive the router-wide token bucket; the
// Login/Reset pairs drive the fixed-window limiter on credential endpoints.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	LoginLimit        int
	LoginWindow       time.Duration
	ResetLimit        int
	ResetWindow       time.Duration
}

// MailConfig holds outbound mail link configuration
type MailConfig struct {
	BaseURL string
	From    string
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// Load loads configuration from the environment. A .env file in the
// working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "tempora"),
			Password:       getEnv("DB_PASSWORD", ""),
			Database:       getEnv("DB_NAME", "tempora"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   parseInt("DB_MAX_IDLE_CONNS", 5),
			AcquireTimeout: parseDuration("DB_ACQUIRE_TIMEOUT", "5s"),
		},
		Auth: AuthConfig{
			SigningKey:      getEnv("SESSION_SIGNING_KEY", ""),
			SessionLifetime: parseDuration("SESSION_LIFETIME", "24h"),
		},
		Security: SecurityConfig{
			Argon2Memory:      uint32(parseInt("ARGON2_MEMORY", 65536)),
			Argon2Iterations:  uint32(parseInt("ARGON2_ITERATIONS", 3)),
			Argon2Parallelism: uint8(parseInt("ARGON2_PARALLELISM", 4)),
			Argon2SaltLength:  uint32(parseInt("ARGON2_SALT_LENGTH", 16)),
			Argon2KeyLength:   uint32(parseInt("ARGON2_KEY_LENGTH", 32)),
		},
		Tokens: TokenConfig{
			ResetTTL:  parseDuration("RESET_TOKEN_TTL", "1h"),
			InviteTTL: parseDuration("INVITE_TOKEN_TTL", "168h"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
			LoginLimit:        parseInt("RATELIMIT_LOGIN_LIMIT", 10),
			LoginWindow:       parseDuration("RATELIMIT_LOGIN_WINDOW", "900s"),
			ResetLimit:        parseInt("RATELIMIT_RESET_LIMIT", 5),
			ResetWindow:       parseDuration("RATELIMIT_RESET_WINDOW", "900s"),
		},
		Mail: MailConfig{
			BaseURL: getEnv("MAIL_BASE_URL", "http://localhost:8080"),
			From:    getEnv("MAIL_FROM", "no-reply@tempora.local"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "tempora"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration. Missing secrets are startup
// errors, never per-request errors.
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("SESSION_SIGNING_KEY is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
