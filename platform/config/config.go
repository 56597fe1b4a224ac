// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client, worker and scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetKPISnapshotCron() string
}

// EmailConfig provides settings for the KPI digest mailer.
type EmailConfig interface {
	IsEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetDigestRecipients() []string
}

// KPIConfig provides settings for server-side KPI aggregation.
type KPIConfig interface {
	GetKPITargetsFile() string
	GetKPICacheTTL() time.Duration
	GetRedisURL() string
}

// BoardConfig provides settings for the client-side pipeline board.
type BoardConfig interface {
	GetBackendURL() string
	GetBackendToken() string
	GetBackendTimeout() time.Duration
	GetFallbackDriver() string
	GetFallbackPath() string
	GetFallbackRedisURL() string
	GetFallbackKeyPrefix() string
}

// =============================================================================
// Config Struct
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Env               string
	HTTPAddr          string
	DatabaseURL       string
	JWTAccessSecret   string
	CORSAllowAll      bool
	CORSOrigins       []string
	CORSAllowCreds    bool
	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	AsynqConcurrency  int
	KPISnapshotCron   string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	EmailFromName     string
	EmailFromAddress  string
	DigestRecipients  []string
	KPITargetsFile    string
	KPICacheTTL       time.Duration
	BackendURL        string
	BackendToken      string
	BackendTimeout    time.Duration
	FallbackDriver    string
	FallbackPath      string
	FallbackRedisURL  string
	FallbackKeyPrefix string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }
func (c *Config) GetKPISnapshotCron() string { return c.KPISnapshotCron }

// EmailConfig implementation
func (c *Config) IsEmailEnabled() bool          { return c.SMTPHost != "" && c.EmailFromAddress != "" }
func (c *Config) GetSMTPHost() string           { return c.SMTPHost }
func (c *Config) GetSMTPPort() int              { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string       { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string       { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string      { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string   { return c.EmailFromAddress }
func (c *Config) GetDigestRecipients() []string { return c.DigestRecipients }

// KPIConfig implementation
func (c *Config) GetKPITargetsFile() string     { return c.KPITargetsFile }
func (c *Config) GetKPICacheTTL() time.Duration { return c.KPICacheTTL }

// BoardConfig implementation
func (c *Config) GetBackendURL() string            { return c.BackendURL }
func (c *Config) GetBackendToken() string          { return c.BackendToken }
func (c *Config) GetBackendTimeout() time.Duration { return c.BackendTimeout }
func (c *Config) GetFallbackDriver() string        { return c.FallbackDriver }
func (c *Config) GetFallbackPath() string          { return c.FallbackPath }
func (c *Config) GetFallbackRedisURL() string      { return c.FallbackRedisURL }
func (c *Config) GetFallbackKeyPrefix() string     { return c.FallbackKeyPrefix }

// Load reads backend configuration from environment variables.
func Load() (*Config, error) {
	cfg := fromEnv()

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.SMTPHost != "" && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when SMTP_HOST is set")
	}

	return cfg, nil
}

// LoadBoard reads the client-side board configuration from environment variables.
func LoadBoard() (*Config, error) {
	cfg := fromEnv()

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	switch cfg.FallbackDriver {
	case "sqlite":
		if cfg.FallbackPath == "" {
			return nil, fmt.Errorf("FALLBACK_PATH is required when FALLBACK_DRIVER is sqlite")
		}
	case "redis":
		if cfg.FallbackRedisURL == "" {
			return nil, fmt.Errorf("FALLBACK_REDIS_URL is required when FALLBACK_DRIVER is redis")
		}
	default:
		return nil, fmt.Errorf("unsupported FALLBACK_DRIVER %q", cfg.FallbackDriver)
	}

	return cfg, nil
}

func fromEnv() *Config {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	redisURL := getEnv("REDIS_URL", "")

	return &Config{
		Env:               getEnv("APP_ENV", "development"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTAccessSecret:   getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:      corsAllowAll,
		CORSOrigins:       corsOrigins,
		CORSAllowCreds:    strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:          redisURL,
		RedisTLSInsecure:  strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:  mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		KPISnapshotCron:   getEnv("KPI_SNAPSHOT_CRON", "0 6 * * 1"),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Controlo Comercial"),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
		DigestRecipients:  splitCSV(getEnv("KPI_DIGEST_RECIPIENTS", "")),
		KPITargetsFile:    getEnv("KPI_TARGETS_FILE", ""),
		KPICacheTTL:       mustDuration(getEnv("KPI_CACHE_TTL", "5m")),
		BackendURL:        strings.TrimRight(getEnv("BACKEND_URL", ""), "/"),
		BackendToken:      getEnv("BACKEND_TOKEN", ""),
		BackendTimeout:    mustDuration(getEnv("BACKEND_TIMEOUT", "15s")),
		FallbackDriver:    strings.ToLower(getEnv("FALLBACK_DRIVER", "sqlite")),
		FallbackPath:      getEnv("FALLBACK_PATH", "board-fallback.db"),
		FallbackRedisURL:  getEnv("FALLBACK_REDIS_URL", redisURL),
		FallbackKeyPrefix: getEnv("FALLBACK_KEY_PREFIX", "board:pending"),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
