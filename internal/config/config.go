// Package config defines the service configuration and how it is loaded.
//
// Values are layered defaults -> optional YAML file -> REFDESK_* environment
// variables. Keys are flat so that REFDESK_HONOR_MAX_AMOUNT maps to
// honor_max_amount without any nesting rules.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Blob drivers
const (
	BlobDriverFS = "fs"
	BlobDriverS3 = "s3"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	Env       string `koanf:"env"`
	Addr      string `koanf:"addr"`
	DBPath    string `koanf:"db_path"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"` // text (tint) or json

	// JWTSecret signs session tokens. Required in production.
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	// CSRFKey is 64 hex characters (32 bytes). Required in production.
	CSRFKey        string   `koanf:"csrf_key"`
	TrustedOrigins []string `koanf:"trusted_origins"`

	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`

	ResendKey string `koanf:"resend_key"`
	EmailFrom string `koanf:"email_from"`
	ReplyTo   string `koanf:"reply_to"`

	BlobDriver  string `koanf:"blob_driver"`
	BlobDir     string `koanf:"blob_dir"`
	S3Bucket    string `koanf:"s3_bucket"`
	S3Region    string `koanf:"s3_region"`
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3PathStyle bool   `koanf:"s3_path_style"`

	// HonorMaxAmount caps a single honor claim, in rupiah.
	HonorMaxAmount int64 `koanf:"honor_max_amount"`
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	OutboxInterval time.Duration `koanf:"outbox_interval"`
	RateLimit      int           `koanf:"rate_limit"`
	SlowQueryMs    int           `koanf:"slow_query_ms"`
	SlowRequestMs  int           `koanf:"slow_request_ms"`
}

// New returns a Config populated with development defaults.
func New() *Config {
	return &Config{
		Env:            EnvDevelopment,
		Addr:           ":8080",
		DBPath:         "refdesk.db",
		LogLevel:       "info",
		LogFormat:      "text",
		TokenTTL:       24 * time.Hour,
		AdminEmail:     "admin@refdesk.local",
		AdminPassword:  "change-me-now",
		EmailFrom:      "Referee Desk <noreply@refdesk.local>",
		ReplyTo:        "admin@refdesk.local",
		BlobDriver:     BlobDriverFS,
		BlobDir:        "uploads",
		S3Region:       "us-east-1",
		HonorMaxAmount: 2_000_000,
		MaxUploadBytes: 5 << 20,
		OutboxInterval: time.Minute,
		RateLimit:      10,
		SlowQueryMs:    50,
		SlowRequestMs:  200,
	}
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate checks cross-field rules that defaults cannot guarantee.
// PRE: c is fully loaded
// POST: returns an error wrapping ErrInvalidConfig on the first violation
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if c.HonorMaxAmount <= 0 {
		return fmt.Errorf("%w: honor_max_amount must be positive", ErrInvalidConfig)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max_upload_bytes must be positive", ErrInvalidConfig)
	}
	if c.OutboxInterval <= 0 {
		return fmt.Errorf("%w: outbox_interval must be positive", ErrInvalidConfig)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("%w: rate_limit must be positive", ErrInvalidConfig)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%w: token_ttl must be positive", ErrInvalidConfig)
	}
	switch c.BlobDriver {
	case BlobDriverFS:
		if c.BlobDir == "" {
			return fmt.Errorf("%w: blob_dir is required for the fs driver", ErrInvalidConfig)
		}
	case BlobDriverS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("%w: s3_bucket is required for the s3 driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown blob_driver %q", ErrInvalidConfig, c.BlobDriver)
	}
	if c.IsProduction() {
		if c.JWTSecret == "" {
			return fmt.Errorf("%w: jwt_secret is required in production", ErrInvalidConfig)
		}
		if c.CSRFKey == "" {
			return fmt.Errorf("%w: csrf_key is required in production", ErrInvalidConfig)
		}
	}
	return nil
}
