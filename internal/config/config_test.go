package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	c := DefaultConfig()
	c.Auth.Secret = "test-secret"
	return c
}

func TestDefaultConfig_Values(t *testing.T) {
	c := DefaultConfig()

	if c.Database.Path != "./livegate.db" {
		t.Errorf("Unexpected database path: %s", c.Database.Path)
	}
	if c.HTTP.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", c.HTTP.Port)
	}
	if c.RateLimit.Limit != 30 || c.RateLimit.Window != 10*time.Second {
		t.Errorf("Unexpected rate limit defaults: %d per %v", c.RateLimit.Limit, c.RateLimit.Window)
	}
	if c.Fanout.Width != 16 {
		t.Errorf("Expected fanout width 16, got %d", c.Fanout.Width)
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		t.Error("Default read timeout must exceed ping interval")
	}
}

func TestValidate_RequiresSecret(t *testing.T) {
	c := DefaultConfig()
	if err := c.Validate(); err == nil {
		t.Error("Expected validation error for empty auth secret")
	}

	c.Auth.Secret = "test-secret"
	if err := c.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero port", func(c *Config) { c.HTTP.Port = 0 }},
		{"port too large", func(c *Config) { c.HTTP.Port = 70000 }},
		{"empty host", func(c *Config) { c.HTTP.Host = "" }},
		{"read timeout below ping interval", func(c *Config) { c.WebSocket.ReadTimeout = c.WebSocket.PingInterval / 2 }},
		{"zero buffer", func(c *Config) { c.WebSocket.BufferSize = 0 }},
		{"zero rate limit", func(c *Config) { c.RateLimit.Limit = 0 }},
		{"negative rate window", func(c *Config) { c.RateLimit.Window = -time.Second }},
		{"zero fanout width", func(c *Config) { c.Fanout.Width = 0 }},
		{"zero token TTL", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"missing rate limit section", func(c *Config) { c.RateLimit = nil }},
		{"missing fanout section", func(c *Config) { c.Fanout = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("LIVEGATE_HTTP_PORT", "9090")
	t.Setenv("LIVEGATE_DATABASE_PATH", "/tmp/test.db")
	t.Setenv("LIVEGATE_RATE_LIMIT", "5")
	t.Setenv("LIVEGATE_RATE_WINDOW", "2s")
	t.Setenv("LIVEGATE_AUTH_SECRET", "env-secret")

	c := LoadFromEnv()

	if c.HTTP.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", c.HTTP.Port)
	}
	if c.Database.Path != "/tmp/test.db" {
		t.Errorf("Expected overridden database path, got %s", c.Database.Path)
	}
	if c.RateLimit.Limit != 5 || c.RateLimit.Window != 2*time.Second {
		t.Errorf("Expected rate limit 5/2s, got %d/%v", c.RateLimit.Limit, c.RateLimit.Window)
	}
	if c.Auth.Secret != "env-secret" {
		t.Error("Expected auth secret from environment")
	}
}

func TestLoadFromEnv_IgnoresMalformedValues(t *testing.T) {
	t.Setenv("LIVEGATE_HTTP_PORT", "not-a-number")
	t.Setenv("LIVEGATE_RATE_WINDOW", "soon")

	c := LoadFromEnv()

	if c.HTTP.Port != 8080 {
		t.Errorf("Malformed port should keep default, got %d", c.HTTP.Port)
	}
	if c.RateLimit.Window != 10*time.Second {
		t.Errorf("Malformed window should keep default, got %v", c.RateLimit.Window)
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	content := `
database:
  path: /var/lib/livegate/live.db
http:
  port: 9000
  host: 127.0.0.1
websocket:
  buffer_size: 256
rate_limit:
  limit: 50
  window: 30s
fanout:
  width: 8
  push_timeout: 500ms
auth:
  secret: file-secret
  token_ttl: 1h
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	c, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if c.Database.Path != "/var/lib/livegate/live.db" {
		t.Errorf("Unexpected database path: %s", c.Database.Path)
	}
	if c.HTTP.Port != 9000 || c.HTTP.Host != "127.0.0.1" {
		t.Errorf("Unexpected HTTP config: %s:%d", c.HTTP.Host, c.HTTP.Port)
	}
	if c.WebSocket.BufferSize != 256 {
		t.Errorf("Expected buffer 256, got %d", c.WebSocket.BufferSize)
	}
	if c.RateLimit.Limit != 50 || c.RateLimit.Window != 30*time.Second {
		t.Errorf("Unexpected rate limit: %d/%v", c.RateLimit.Limit, c.RateLimit.Window)
	}
	if c.Fanout.Width != 8 || c.Fanout.PushTimeout != 500*time.Millisecond {
		t.Errorf("Unexpected fanout: %d/%v", c.Fanout.Width, c.Fanout.PushTimeout)
	}
	if c.Auth.Secret != "file-secret" || c.Auth.TokenTTL != time.Hour {
		t.Error("Unexpected auth config")
	}
	// Untouched sections keep defaults.
	if c.WebSocket.PingInterval != 30*time.Second {
		t.Errorf("Expected default ping interval, got %v", c.WebSocket.PingInterval)
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{{not yaml"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestLoadWithPrecedence_FileWins(t *testing.T) {
	t.Setenv("LIVEGATE_HTTP_PORT", "9090")
	t.Setenv("LIVEGATE_AUTH_SECRET", "env-secret")

	content := "http:\n  port: 9000\nauth:\n  secret: file-secret\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	c := LoadWithPrecedence(path)
	if c.HTTP.Port != 9000 {
		t.Errorf("File should take precedence, got port %d", c.HTTP.Port)
	}

	// A missing file falls back to environment settings.
	c = LoadWithPrecedence("/nonexistent/config.yaml")
	if c.HTTP.Port != 9090 || c.Auth.Secret != "env-secret" {
		t.Error("Expected environment fallback when file is absent")
	}
}
