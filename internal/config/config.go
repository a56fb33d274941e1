// Package config loads service configuration from defaults, an optional
// YAML file and environment variables, in increasing precedence, and
// validates the result on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Database DatabaseConfig  `yaml:"database"`
	Files    FilesConfig     `yaml:"files"`
	Auth     AuthConfig      `yaml:"auth"`
	Upload   UploadConfig    `yaml:"upload"`
	Rate     RateLimitConfig `yaml:"rate"`
	Security SecurityConfig  `yaml:"security"`
	Logging  LoggingConfig   `yaml:"logging"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `yaml:"port" env:"SERVER_PORT" default:"8080"`

	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is 0 by default: ingestion responses are written only
	// after the whole file is stored.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds read-only dataset endpoints.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig selects the storage backend.
type DatabaseConfig struct {
	// Kind is postgres, sqlite or memory.
	Kind string `yaml:"kind" env:"DB_KIND" default:"postgres"`

	// URL is the Postgres connection string or the SQLite file path.
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `yaml:"max_conns" env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `yaml:"min_conns" env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate creates the tables on startup.
	AutoMigrate bool `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" default:"true"`
}

// FilesConfig locates the uploaded file store.
type FilesConfig struct {
	Root string `yaml:"root" env:"FILES_ROOT" default:"./data/files"`
}

// AuthConfig lists accepted bearer tokens as "token:user_id" pairs.
type AuthConfig struct {
	Tokens []string `yaml:"tokens" env:"AUTH_TOKENS"`
}

// UploadConfig holds ingestion settings.
type UploadConfig struct {
	// MaxFileSize is the largest file accepted, in bytes (default: 100MB)
	MaxFileSize int64 `yaml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the number of ingestions that may run at once.
	MaxConcurrent int `yaml:"max_concurrent" env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long an ingestion waits for a slot.
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// BatchSize is the number of rows per insert batch.
	BatchSize int `yaml:"batch_size" env:"UPLOAD_BATCH_SIZE" default:"100"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `yaml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit applies to file upload and ingestion endpoints.
	UploadLimit int `yaml:"upload_limit" env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`

	// CORSOrigin is sent as Access-Control-Allow-Origin.
	CORSOrigin string `yaml:"cors_origin" env:"CORS_ORIGIN" default:"*"`

	EnableCSP bool `yaml:"enable_csp" env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig selects a metrics backend.
type MetricsConfig struct {
	// Backend is "none" or "datadog". Datadog reads DD_API_KEY and DD_SITE.
	Backend       string        `yaml:"backend" env:"METRICS_BACKEND" default:"none"`
	JobName       string        `yaml:"job_name" env:"METRICS_JOB_NAME" default:"csvdatasets"`
	Tags          []string      `yaml:"tags" env:"METRICS_TAGS"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"METRICS_FLUSH_INTERVAL" default:"60s"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
