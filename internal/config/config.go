// Package config provides centralized configuration management for the
// cleaning service. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cleaning CleaningConfig
	Advisor  AdvisorConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining runs (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 2m).
	// Advisor calls happen inside the request, so keep this above ADVISOR_TIMEOUT.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"2m"`

	// MaxUploadSize caps uploaded dataset files in bytes (default: 32MB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"33554432"`
}

// DatabaseConfig holds the optional PostgreSQL source settings. When URL is
// empty the server runs without database sources.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int32         `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int32         `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// QueryTimeout bounds loading a table into memory (default: 30s)
	QueryTimeout time.Duration `env:"DB_QUERY_TIMEOUT" default:"30s"`

	// MaxRows caps rows loaded from a table (default: 200000)
	MaxRows int `env:"DB_MAX_ROWS" default:"200000"`
}

// Enabled reports whether a database URL is configured.
func (c *DatabaseConfig) Enabled() bool { return c.URL != "" }

// CleaningConfig tunes the cleaning pipeline and run bookkeeping.
type CleaningConfig struct {
	// DedupKeep is first, last or none (default: first)
	DedupKeep string `env:"CLEAN_DEDUP_KEEP" default:"first"`

	// RemoveOutliers enables the outlier pass after imputation (default: false)
	RemoveOutliers bool `env:"CLEAN_REMOVE_OUTLIERS" default:"false"`

	// OutlierMethod is iqr or zscore (default: iqr)
	OutlierMethod string `env:"CLEAN_OUTLIER_METHOD" default:"iqr"`

	// OutlierThreshold is the IQR multiplier or z cutoff; 0 picks the
	// method default (1.5 or 3).
	OutlierThreshold float64 `env:"CLEAN_OUTLIER_THRESHOLD" default:"0"`

	// OutlierColumns restricts the outlier pass; empty means all numeric columns.
	OutlierColumns []string `env:"CLEAN_OUTLIER_COLUMNS"`

	// MaxConcurrentRuns bounds parallel pipeline runs (default: 4)
	MaxConcurrentRuns int `env:"CLEAN_MAX_CONCURRENT_RUNS" default:"4"`

	// RunMaxWait is how long a request waits for a run slot (default: 30s)
	RunMaxWait time.Duration `env:"CLEAN_RUN_MAX_WAIT" default:"30s"`

	// RunRetention is how long finished runs stay retrievable (default: 1h)
	RunRetention time.Duration `env:"CLEAN_RUN_RETENTION" default:"1h"`

	// PreviewRows is the number of rows shown in previews (default: 50)
	PreviewRows int `env:"CLEAN_PREVIEW_ROWS" default:"50"`
}

// AdvisorConfig configures the issue detection and planning collaborator.
type AdvisorConfig struct {
	// Provider is none, heuristic or gemini (default: heuristic)
	Provider string `env:"ADVISOR_PROVIDER" default:"heuristic"`

	// APIKey authenticates against the Gemini API.
	APIKey string `env:"GOOGLE_API_KEY" envAlt:"GEMINI_API_KEY"`

	Model       string        `env:"ADVISOR_MODEL" default:"gemini-2.5-flash"`
	Endpoint    string        `env:"ADVISOR_ENDPOINT" default:"https://generativelanguage.googleapis.com/v1beta"`
	Temperature float64       `env:"ADVISOR_TEMPERATURE" default:"0.2"`
	Timeout     time.Duration `env:"ADVISOR_TIMEOUT" default:"60s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey protects /api routes with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RateLimit is the number of requests per minute per client IP; 0 disables (default: 100)
	RateLimit int `env:"RATE_LIMIT_PER_MINUTE" default:"100"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
