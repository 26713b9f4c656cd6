// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected in production.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Storage drivers.
const (
	StorageDisk  = "disk"
	StorageMinIO = "minio"
)

// Notification drivers.
const (
	NotifyLog  = "log"
	NotifySMTP = "smtp"
	NotifyAMQP = "amqp"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath        string `env:"BKC_DB_PATH" envDefault:"./data/bkconstruct.db"`
	SessionSecret string `env:"BKC_SESSION_SECRET,required"`
	ServerHost    string `env:"BKC_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"BKC_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"BKC_ENV" envDefault:"development"`
	LogLevel      string `env:"BKC_LOG_LEVEL" envDefault:"info"`
	// BaseURL is the public origin used in links sent by email.
	BaseURL string `env:"BKC_BASE_URL" envDefault:"http://localhost:8080"`

	SessionLifetime time.Duration `env:"BKC_SESSION_LIFETIME" envDefault:"24h"`
	// SessionSweepSchedule is the cron expression of the session tracking cleanup.
	SessionSweepSchedule string `env:"BKC_SESSION_SWEEP_SCHEDULE" envDefault:"*/15 * * * *"`

	// File storage
	StorageDriver  string `env:"BKC_STORAGE_DRIVER" envDefault:"disk"`
	StorageDir     string `env:"BKC_STORAGE_DIR" envDefault:"./storage"`
	StorageURL     string `env:"BKC_STORAGE_URL" envDefault:"/storage"`
	MinIOEndpoint  string `env:"BKC_MINIO_ENDPOINT"`
	MinIOAccessKey string `env:"BKC_MINIO_ACCESS_KEY"`
	MinIOSecretKey string `env:"BKC_MINIO_SECRET_KEY"`
	MinIOBucket    string `env:"BKC_MINIO_BUCKET" envDefault:"bkconstruct"`
	MinIOUseSSL    bool   `env:"BKC_MINIO_USE_SSL" envDefault:"true"`
	// MinIOPublicURL is the public base URL of the bucket, if it is served directly.
	MinIOPublicURL string `env:"BKC_MINIO_PUBLIC_URL"`

	// Notifications
	NotifyDriver string   `env:"BKC_NOTIFY_DRIVER" envDefault:"log"`
	NotifyTo     []string `env:"BKC_NOTIFY_TO" envSeparator:","`
	SMTPHost     string   `env:"BKC_SMTP_HOST"`
	SMTPPort     int      `env:"BKC_SMTP_PORT" envDefault:"587"`
	SMTPUsername string   `env:"BKC_SMTP_USERNAME"`
	SMTPPassword string   `env:"BKC_SMTP_PASSWORD"`
	SMTPFrom     string   `env:"BKC_SMTP_FROM" envDefault:"no-reply@localhost"`
	AMQPURL      string   `env:"BKC_AMQP_URL"`

	// Public page cache. Redis is used when BKC_REDIS_URL is set; a zero TTL disables the cache.
	RedisURL     string        `env:"BKC_REDIS_URL"`
	PageCacheTTL time.Duration `env:"BKC_PAGE_CACHE_TTL" envDefault:"5m"`

	// Public form rate limit, requests per minute per IP.
	FormRateLimit int `env:"BKC_FORM_RATE_LIMIT" envDefault:"10"`

	MetricsEnabled bool `env:"BKC_METRICS_ENABLED" envDefault:"true"`

	// Public contact details
	ContactPhone string `env:"BKC_CONTACT_PHONE"`
	ContactEmail string `env:"BKC_CONTACT_EMAIL"`
	ContactCity  string `env:"BKC_CONTACT_CITY"`
	ContactHours string `env:"BKC_CONTACT_HOURS"`

	// Seeding configuration
	DoSeed bool `env:"BKC_DO_SEED" envDefault:"false"` // Create the default admin on startup
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseMinIO reports whether files are stored in an S3-compatible bucket.
func (c Config) UseMinIO() bool {
	return c.StorageDriver == StorageMinIO
}

// MinSessionSecretLength is the minimum required length for the session secret.
// It also signs email verification links (HS256).
const MinSessionSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.SessionSecret) < MinSessionSecretLength {
		return nil, fmt.Errorf("BKC_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(cfg.SessionSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.SessionSecret == weak {
			return nil, fmt.Errorf("BKC_SESSION_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("BKC_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BKC_BASE_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.SessionLifetime < time.Minute {
		return fmt.Errorf("BKC_SESSION_LIFETIME must be at least 1m, got %s", c.SessionLifetime)
	}

	switch c.StorageDriver {
	case StorageDisk:
	case StorageMinIO:
		if c.MinIOEndpoint == "" || c.MinIOAccessKey == "" || c.MinIOSecretKey == "" {
			return fmt.Errorf("BKC_STORAGE_DRIVER=minio requires BKC_MINIO_ENDPOINT, BKC_MINIO_ACCESS_KEY and BKC_MINIO_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown BKC_STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.NotifyDriver {
	case NotifyLog:
	case NotifySMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("BKC_NOTIFY_DRIVER=smtp requires BKC_SMTP_HOST")
		}
	case NotifyAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("BKC_NOTIFY_DRIVER=amqp requires BKC_AMQP_URL")
		}
	default:
		return fmt.Errorf("unknown BKC_NOTIFY_DRIVER %q", c.NotifyDriver)
	}

	if c.PageCacheTTL < 0 {
		return fmt.Errorf("BKC_PAGE_CACHE_TTL must not be negative, got %s", c.PageCacheTTL)
	}

	if c.FormRateLimit < 1 {
		c.FormRateLimit = 1
	}
	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
