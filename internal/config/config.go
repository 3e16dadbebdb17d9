package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Security SecurityConfig
	OAuth    OAuthConfig
	Carriers CarrierConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        string
	Version     string
	URL         string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host        string
	Password    string
	DB          int
	MaxRetries  int
	PoolSize    int
	DialTimeout time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type SecurityConfig struct {
	// CredentialsEncryptionKey is the hex-encoded AES-256 key for carrier
	// credential envelopes. Startup fails if absent or not 64 hex chars.
	CredentialsEncryptionKey string
}

type OAuthConfig struct {
	AllowedOrigins  []string
	FrontendURL     string
	AppURL          string
	StateTTL        time.Duration
	RateLimitMax    int64
	RateLimitWindow time.Duration
}

type CarrierConfig struct {
	DHLClientID       string
	DHLClientSecret   string
	FedExClientID     string
	FedExClientSecret string
}

var hexKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Rappit Core"),
			Environment: getEnv("NODE_ENV", "development"),
			Port:        getEnv("APP_PORT", "8080"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			URL:         getEnv("APP_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "rappit"),
			Password:        getEnv("DB_PASSWORD", "secret"),
			Name:            getEnv("DB_NAME", "rappit_dev"),
			MaxConnections:  getEnvInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONNECTION_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:        getEnv("REDIS_HOST", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			MaxRetries:  getEnvInt("REDIS_MAX_RETRIES", 3),
			PoolSize:    getEnvInt("REDIS_POOL_SIZE", 10),
			DialTimeout: 5 * time.Second,
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "change-this-secret"),
			Expiration: getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
		},
		Security: SecurityConfig{
			CredentialsEncryptionKey: os.Getenv("CREDENTIALS_ENCRYPTION_KEY"),
		},
		OAuth: OAuthConfig{
			AllowedOrigins:  splitCSV(os.Getenv("OAUTH_ALLOWED_ORIGINS")),
			FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
			AppURL:          getEnv("APP_URL", "http://localhost:8080"),
			StateTTL:        getEnvDuration("OAUTH_STATE_TTL", 10*time.Minute),
			RateLimitMax:    int64(getEnvInt("OAUTH_RATE_LIMIT_MAX", 10)),
			RateLimitWindow: getEnvDuration("OAUTH_RATE_LIMIT_WINDOW", time.Minute),
		},
		Carriers: CarrierConfig{
			DHLClientID:       getEnv("DHL_CLIENT_ID", ""),
			DHLClientSecret:   getEnv("DHL_CLIENT_SECRET", ""),
			FedExClientID:     getEnv("FEDEX_CLIENT_ID", ""),
			FedExClientSecret: getEnv("FEDEX_CLIENT_SECRET", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if !hexKeyPattern.MatchString(c.Security.CredentialsEncryptionKey) {
		return fmt.Errorf("CREDENTIALS_ENCRYPTION_KEY must be 64 hex characters")
	}
	if c.JWT.Secret == "change-this-secret" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// AllowedRedirectOrigins builds the full redirect allow-list: the explicit
// env list plus frontend/app URLs, plus localhost origins outside production.
func (c *Config) AllowedRedirectOrigins() []string {
	origins := make([]string, 0, len(c.OAuth.AllowedOrigins)+4)
	origins = append(origins, c.OAuth.AllowedOrigins...)
	origins = append(origins, c.OAuth.FrontendURL, c.OAuth.AppURL)
	if !c.IsProduction() {
		origins = append(origins, "http://localhost:3000", "http://localhost:8080")
	}
	return origins
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
