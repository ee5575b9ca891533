// Package config provides application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration.
type Config struct {
	Port               string        `env:"PORT"                  envDefault:"8080"`
	FrontendURL        string        `env:"FRONTEND_URL"`
	DBPath             string        `env:"DB_PATH"               envDefault:"./data/plates.db"`
	ArchiveEnabled     bool          `env:"ARCHIVE_ENABLED"       envDefault:"true"`
	PromptTTL          time.Duration `env:"PROMPT_TTL"            envDefault:"30m"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`
	Document           DocumentConfig
	ConversationLog    ConversationLogConfig
}

// DocumentConfig selects where printed plates are stored.
type DocumentConfig struct {
	Driver  string `env:"DOCUMENT_DRIVER"   envDefault:"memory"`
	Dir     string `env:"DOCUMENT_DIR"      envDefault:"./data/documents"`
	BaseURL string `env:"DOCUMENT_BASE_URL"`
	S3      S3Config
}

// S3Config configures the S3 / MinIO document driver.
type S3Config struct {
	Bucket          string `env:"DOCUMENT_S3_BUCKET"`
	Region          string `env:"DOCUMENT_S3_REGION"            envDefault:"us-east-1"`
	Endpoint        string `env:"DOCUMENT_S3_ENDPOINT"`
	PathStyle       bool   `env:"DOCUMENT_S3_PATH_STYLE"`
	AccessKeyID     string `env:"DOCUMENT_S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"DOCUMENT_S3_SECRET_ACCESS_KEY"`
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool   `env:"CONVERSATION_LOG_ENABLED"        envDefault:"true"`
	Dir           string `env:"CONVERSATION_LOG_DIR"            envDefault:"./data/logs/conversations"`
	GlobalEnabled bool   `env:"CONVERSATION_LOG_GLOBAL_ENABLED" envDefault:"false"`
	GlobalPath    string `env:"CONVERSATION_LOG_GLOBAL_PATH"    envDefault:"./data/logs/conversations/all.ndjson"`
	QueueSize     int    `env:"CONVERSATION_LOG_QUEUE_SIZE"     envDefault:"1000"`
	MaxOpenFiles  int    `env:"CONVERSATION_LOG_MAX_OPEN_FILES" envDefault:"64"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Document.Driver = strings.ToLower(strings.TrimSpace(cfg.Document.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.ArchiveEnabled && c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty when the archive is enabled")
	}
	if c.PromptTTL <= 0 {
		return fmt.Errorf("PROMPT_TTL must be > 0")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	switch c.Document.Driver {
	case "memory":
	case "fs":
		if c.Document.Dir == "" {
			return fmt.Errorf("DOCUMENT_DIR cannot be empty for the fs driver")
		}
	case "s3":
		if c.Document.S3.Bucket == "" {
			return fmt.Errorf("DOCUMENT_S3_BUCKET cannot be empty for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown DOCUMENT_DRIVER %q", c.Document.Driver)
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalEnabled && c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	if c.ConversationLog.MaxOpenFiles <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_MAX_OPEN_FILES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}
