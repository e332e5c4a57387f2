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

// DialerConfig provides settings for the outbound conversational-calling provider.
type DialerConfig interface {
	GetDialerAPIURL() string
	GetDialerAPIKey() string
	GetDialerAgentID() string
	GetDialerAgentPhoneNumberID() string
	GetAgentPhoneNumber() string
	IsDialerEnabled() bool
}

// SchedulerConfig provides settings for the asynq dispatch queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SweepConfig provides settings for the retry sweep.
type SweepConfig interface {
	GetSweepInterval() time.Duration
	GetSweepBatchSize() int
	GetRetryBuffer() time.Duration
	GetWindowStartHour() int
	GetWindowEndHour() int
	GetWindowLocation() *time.Location
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	DialerAPIURL             string
	DialerAPIKey             string
	DialerAgentID            string
	DialerAgentPhoneNumberID string
	AgentPhoneNumber         string
	SweepInterval            time.Duration
	SweepBatchSize           int
	RetryBuffer              time.Duration
	WindowStartHour          int
	WindowEndHour            int
	WindowLocation           *time.Location
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

// DialerConfig implementation
func (c *Config) GetDialerAPIURL() string             { return c.DialerAPIURL }
func (c *Config) GetDialerAPIKey() string             { return c.DialerAPIKey }
func (c *Config) GetDialerAgentID() string            { return c.DialerAgentID }
func (c *Config) GetDialerAgentPhoneNumberID() string { return c.DialerAgentPhoneNumberID }
func (c *Config) GetAgentPhoneNumber() string         { return c.AgentPhoneNumber }
func (c *Config) IsDialerEnabled() bool               { return c.DialerAPIURL != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// SweepConfig implementation
func (c *Config) GetSweepInterval() time.Duration   { return c.SweepInterval }
func (c *Config) GetSweepBatchSize() int            { return c.SweepBatchSize }
func (c *Config) GetRetryBuffer() time.Duration     { return c.RetryBuffer }
func (c *Config) GetWindowStartHour() int           { return c.WindowStartHour }
func (c *Config) GetWindowEndHour() int             { return c.WindowEndHour }
func (c *Config) GetWindowLocation() *time.Location { return c.WindowLocation }

// Load reads configuration from environment variables.
// Secrets have no source defaults: a missing required secret fails startup.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	location, err := time.LoadLocation(getEnv("SWEEP_TIMEZONE", "Europe/Berlin"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		DialerAPIURL:             getEnv("DIALER_API_URL", ""),
		DialerAPIKey:             getEnv("DIALER_API_KEY", ""),
		DialerAgentID:            getEnv("DIALER_AGENT_ID", ""),
		DialerAgentPhoneNumberID: getEnv("DIALER_AGENT_PHONE_NUMBER_ID", ""),
		AgentPhoneNumber:         getEnv("AGENT_PHONE_NUMBER", ""),
		SweepInterval:            mustDuration(getEnv("SWEEP_INTERVAL", "5m")),
		SweepBatchSize:           mustInt(getEnv("SWEEP_BATCH_SIZE", "10")),
		RetryBuffer:              mustDuration(getEnv("SWEEP_RETRY_BUFFER", "30m")),
		WindowStartHour:          mustInt(getEnv("SWEEP_WINDOW_START_HOUR", "9")),
		WindowEndHour:            mustInt(getEnv("SWEEP_WINDOW_END_HOUR", "17")),
		WindowLocation:           location,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.IsDialerEnabled() {
		if cfg.DialerAPIKey == "" {
			return nil, fmt.Errorf("DIALER_API_KEY is required when DIALER_API_URL is set")
		}
		if cfg.DialerAgentID == "" {
			return nil, fmt.Errorf("DIALER_AGENT_ID is required when DIALER_API_URL is set")
		}
	}
	if cfg.WindowStartHour < 0 || cfg.WindowEndHour > 24 || cfg.WindowStartHour >= cfg.WindowEndHour {
		return nil, fmt.Errorf("invalid sweep window hours: start=%d end=%d", cfg.WindowStartHour, cfg.WindowEndHour)
	}
	if cfg.SweepBatchSize < 1 {
		return nil, fmt.Errorf("SWEEP_BATCH_SIZE must be positive")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
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
	result, err := strconv.Atoi(value)
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
