package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.PromptTTL != 30*time.Minute {
		t.Fatalf("expected 30m prompt ttl, got %s", cfg.PromptTTL)
	}
	if cfg.Document.Driver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.Document.Driver)
	}
	if !cfg.ArchiveEnabled || cfg.ConversationLog.QueueSize != 1000 || cfg.ConversationLog.MaxOpenFiles != 64 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("empty FRONTEND_URL should mean development")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://plates.example")
	t.Setenv("PROMPT_TTL", "5m")
	t.Setenv("DOCUMENT_DRIVER", " S3 ")
	t.Setenv("DOCUMENT_S3_BUCKET", "plates")
	t.Setenv("DOCUMENT_S3_PATH_STYLE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" || cfg.PromptTTL != 5*time.Minute {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Document.Driver != "s3" || cfg.Document.S3.Bucket != "plates" || !cfg.Document.S3.PathStyle {
		t.Fatalf("unexpected document config %+v", cfg.Document)
	}
	if cfg.IsDevelopment() {
		t.Fatal("public FRONTEND_URL should not be development")
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("PROMPT_TTL", "soon")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:               "8080",
			DBPath:             "plates.db",
			ArchiveEnabled:     true,
			PromptTTL:          time.Minute,
			MaxRequestBodySize: 1024,
			Document:           DocumentConfig{Driver: "memory"},
			ConversationLog:    ConversationLogConfig{QueueSize: 1, MaxOpenFiles: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty port", func(c *Config) { c.Port = "" }, "PORT"},
		{"archive without db", func(c *Config) { c.DBPath = "" }, "DB_PATH"},
		{"archive disabled without db", func(c *Config) { c.DBPath = ""; c.ArchiveEnabled = false }, ""},
		{"zero ttl", func(c *Config) { c.PromptTTL = 0 }, "PROMPT_TTL"},
		{"unknown driver", func(c *Config) { c.Document.Driver = "ftp" }, "DOCUMENT_DRIVER"},
		{"fs without dir", func(c *Config) { c.Document.Driver = "fs" }, "DOCUMENT_DIR"},
		{"s3 without bucket", func(c *Config) { c.Document.Driver = "s3" }, "DOCUMENT_S3_BUCKET"},
		{"log without dir", func(c *Config) { c.ConversationLog.Enabled = true }, "CONVERSATION_LOG_DIR"},
		{"zero queue", func(c *Config) { c.ConversationLog.QueueSize = 0 }, "QUEUE_SIZE"},
		{"zero open files", func(c *Config) { c.ConversationLog.MaxOpenFiles = 0 }, "MAX_OPEN_FILES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
