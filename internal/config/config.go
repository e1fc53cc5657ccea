package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ARCHITECTURAL DISCOVERY: Configuration layer serves as system-wide settings
// coordinator, keeping tuning knobs out of the business logic packages.
type Config struct {
	Database  *DatabaseConfig
	HTTP      *HTTPConfig
	WebSocket *WebSocketConfig
	RateLimit *RateLimitConfig
	Fanout    *FanoutConfig
	Auth      *AuthConfig
}

type DatabaseConfig struct {
	Path    string
	Timeout time.Duration
}

type HTTPConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type WebSocketConfig struct {
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BufferSize     int
	MessageTimeout time.Duration
}

// RateLimitConfig tunes the per-connection sliding window.
type RateLimitConfig struct {
	Limit           int
	Window          time.Duration
	CleanupInterval time.Duration
	MaxIdle         time.Duration
}

// FanoutConfig bounds broadcast concurrency.
type FanoutConfig struct {
	Width       int
	PushTimeout time.Duration
}

// AuthConfig holds the connect-token signing material.
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// FUNCTIONAL DISCOVERY: Defaults sized for a single-node gateway; the rate
// window matches what viewers tolerate before chat becomes noise.
func DefaultConfig() *Config {
	return &Config{
		Database: &DatabaseConfig{
			Path:    "./livegate.db",
			Timeout: 30 * time.Second,
		},
		HTTP: &HTTPConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval:   30 * time.Second,
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   10 * time.Second,
			BufferSize:     100,
			MessageTimeout: 10 * time.Second,
		},
		RateLimit: &RateLimitConfig{
			Limit:           30,
			Window:          10 * time.Second,
			CleanupInterval: time.Minute,
			MaxIdle:         5 * time.Minute,
		},
		Fanout: &FanoutConfig{
			Width:       16,
			PushTimeout: 2 * time.Second,
		},
		Auth: &AuthConfig{
			Secret:   "",
			TokenTTL: 12 * time.Hour,
		},
	}
}

// Validate catches invalid configurations before any component starts.
func (c *Config) Validate() error {
	if c.Database == nil {
		return fmt.Errorf("database configuration is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.Database.Timeout <= 0 {
		return fmt.Errorf("database timeout must be positive")
	}

	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be positive")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("WebSocket write timeout must be positive")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("WebSocket buffer size must be positive")
	}
	if c.WebSocket.MessageTimeout <= 0 {
		return fmt.Errorf("WebSocket message timeout must be positive")
	}

	if c.RateLimit == nil {
		return fmt.Errorf("rate limit configuration is required")
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.RateLimit.CleanupInterval <= 0 || c.RateLimit.MaxIdle <= 0 {
		return fmt.Errorf("rate limit cleanup settings must be positive")
	}

	if c.Fanout == nil {
		return fmt.Errorf("fanout configuration is required")
	}
	if c.Fanout.Width <= 0 {
		return fmt.Errorf("fanout width must be positive")
	}
	if c.Fanout.PushTimeout <= 0 {
		return fmt.Errorf("fanout push timeout must be positive")
	}

	if c.Auth == nil {
		return fmt.Errorf("auth configuration is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret cannot be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth token TTL must be positive")
	}

	return nil
}

// FUNCTIONAL DISCOVERY: Environment variables override defaults with fallback,
// which is what container deployments expect.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if dbPath := os.Getenv("LIVEGATE_DATABASE_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}
	setDuration(&config.Database.Timeout, "LIVEGATE_DATABASE_TIMEOUT")

	if port := os.Getenv("LIVEGATE_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if host := os.Getenv("LIVEGATE_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	setDuration(&config.HTTP.ReadTimeout, "LIVEGATE_HTTP_READ_TIMEOUT")
	setDuration(&config.HTTP.WriteTimeout, "LIVEGATE_HTTP_WRITE_TIMEOUT")

	setDuration(&config.WebSocket.PingInterval, "LIVEGATE_WEBSOCKET_PING_INTERVAL")
	setDuration(&config.WebSocket.ReadTimeout, "LIVEGATE_WEBSOCKET_READ_TIMEOUT")
	setDuration(&config.WebSocket.WriteTimeout, "LIVEGATE_WEBSOCKET_WRITE_TIMEOUT")
	setDuration(&config.WebSocket.MessageTimeout, "LIVEGATE_WEBSOCKET_MESSAGE_TIMEOUT")
	if bufferSize := os.Getenv("LIVEGATE_WEBSOCKET_BUFFER_SIZE"); bufferSize != "" {
		if size, err := strconv.Atoi(bufferSize); err == nil {
			config.WebSocket.BufferSize = size
		}
	}

	if limit := os.Getenv("LIVEGATE_RATE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			config.RateLimit.Limit = n
		}
	}
	setDuration(&config.RateLimit.Window, "LIVEGATE_RATE_WINDOW")
	setDuration(&config.RateLimit.CleanupInterval, "LIVEGATE_RATE_CLEANUP_INTERVAL")
	setDuration(&config.RateLimit.MaxIdle, "LIVEGATE_RATE_MAX_IDLE")

	if width := os.Getenv("LIVEGATE_FANOUT_WIDTH"); width != "" {
		if n, err := strconv.Atoi(width); err == nil {
			config.Fanout.Width = n
		}
	}
	setDuration(&config.Fanout.PushTimeout, "LIVEGATE_FANOUT_PUSH_TIMEOUT")

	if secret := os.Getenv("LIVEGATE_AUTH_SECRET"); secret != "" {
		config.Auth.Secret = secret
	}
	setDuration(&config.Auth.TokenTTL, "LIVEGATE_AUTH_TOKEN_TTL")

	return config
}

func setDuration(target *time.Duration, envVar string) {
	if raw := os.Getenv(envVar); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			*target = d
		}
	}
}

// configFile mirrors Config with string durations so YAML stays readable
// ("10s" instead of nanosecond integers).
type configFile struct {
	Database *struct {
		Path    string `yaml:"path"`
		Timeout string `yaml:"timeout"`
	} `yaml:"database"`
	HTTP *struct {
		Port         int    `yaml:"port"`
		Host         string `yaml:"host"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"http"`
	WebSocket *struct {
		PingInterval   string `yaml:"ping_interval"`
		ReadTimeout    string `yaml:"read_timeout"`
		WriteTimeout   string `yaml:"write_timeout"`
		BufferSize     int    `yaml:"buffer_size"`
		MessageTimeout string `yaml:"message_timeout"`
	} `yaml:"websocket"`
	RateLimit *struct {
		Limit           int    `yaml:"limit"`
		Window          string `yaml:"window"`
		CleanupInterval string `yaml:"cleanup_interval"`
		MaxIdle         string `yaml:"max_idle"`
	} `yaml:"rate_limit"`
	Fanout *struct {
		Width       int    `yaml:"width"`
		PushTimeout string `yaml:"push_timeout"`
	} `yaml:"fanout"`
	Auth *struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
}

// LoadFromFile reads a YAML configuration file over the defaults.
// Absent keys keep their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config := DefaultConfig()

	if file.Database != nil {
		if file.Database.Path != "" {
			config.Database.Path = file.Database.Path
		}
		parseDuration(&config.Database.Timeout, file.Database.Timeout)
	}
	if file.HTTP != nil {
		if file.HTTP.Port > 0 {
			config.HTTP.Port = file.HTTP.Port
		}
		if file.HTTP.Host != "" {
			config.HTTP.Host = file.HTTP.Host
		}
		parseDuration(&config.HTTP.ReadTimeout, file.HTTP.ReadTimeout)
		parseDuration(&config.HTTP.WriteTimeout, file.HTTP.WriteTimeout)
	}
	if file.WebSocket != nil {
		parseDuration(&config.WebSocket.PingInterval, file.WebSocket.PingInterval)
		parseDuration(&config.WebSocket.ReadTimeout, file.WebSocket.ReadTimeout)
		parseDuration(&config.WebSocket.WriteTimeout, file.WebSocket.WriteTimeout)
		parseDuration(&config.WebSocket.MessageTimeout, file.WebSocket.MessageTimeout)
		if file.WebSocket.BufferSize > 0 {
			config.WebSocket.BufferSize = file.WebSocket.BufferSize
		}
	}
	if file.RateLimit != nil {
		if file.RateLimit.Limit > 0 {
			config.RateLimit.Limit = file.RateLimit.Limit
		}
		parseDuration(&config.RateLimit.Window, file.RateLimit.Window)
		parseDuration(&config.RateLimit.CleanupInterval, file.RateLimit.CleanupInterval)
		parseDuration(&config.RateLimit.MaxIdle, file.RateLimit.MaxIdle)
	}
	if file.Fanout != nil {
		if file.Fanout.Width > 0 {
			config.Fanout.Width = file.Fanout.Width
		}
		parseDuration(&config.Fanout.PushTimeout, file.Fanout.PushTimeout)
	}
	if file.Auth != nil {
		if file.Auth.Secret != "" {
			config.Auth.Secret = file.Auth.Secret
		}
		parseDuration(&config.Auth.TokenTTL, file.Auth.TokenTTL)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", path, err)
	}
	return config, nil
}

func parseDuration(target *time.Duration, raw string) {
	if raw == "" {
		return
	}
	if d, err := time.ParseDuration(raw); err == nil {
		*target = d
	}
}

// FUNCTIONAL DISCOVERY: Configuration precedence: file > environment >
// defaults. A missing or broken file keeps the process bootable on
// environment settings alone.
func LoadWithPrecedence(path string) *Config {
	config := LoadFromEnv()

	if path != "" {
		if fileConfig, err := LoadFromFile(path); err == nil {
			config = fileConfig
		}
	}

	return config
}
