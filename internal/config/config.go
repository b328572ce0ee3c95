package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/meur/comparador/internal/models"
	"gopkg.in/yaml.v3"
)

// Config holds all server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Admin      AdminConfig      `yaml:"admin"`
	Display    DisplayConfig    `yaml:"display"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	StaticDir      string   `yaml:"static_dir"` // optional frontend build to serve at /
}

// StorageConfig configures the SQLite document store.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig holds the single admin identity.
type AdminConfig struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"` // bcrypt, see `comparador-server hash-password`
	SessionTTL   string `yaml:"session_ttl"`
}

// DisplayConfig holds presentation defaults.
type DisplayConfig struct {
	FallbackColor string `yaml:"fallback_color"`
}

// RangeConfig bounds one indicator. Nil bounds are open.
type RangeConfig struct {
	Min          *float64 `yaml:"min"`
	Max          *float64 `yaml:"max"`
	ExclusiveMin bool     `yaml:"exclusive_min"`
}

// ValidationConfig enables optional indicator range checks.
type ValidationConfig struct {
	Strict bool                   `yaml:"strict"` // [0, 100] on every percentage indicator
	Ranges map[string]RangeConfig `yaml:"ranges"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Storage: StorageConfig{
			Path: "./comparador.db",
		},
		Admin: AdminConfig{
			SessionTTL: "12h",
		},
		Display: DisplayConfig{
			FallbackColor: models.DefaultColor,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("ADMIN_EMAIL"); v != "" {
		c.Admin.Email = v
	}
	if v := os.Getenv("ADMIN_PASSWORD_HASH"); v != "" {
		c.Admin.PasswordHash = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetSessionTTL parses the admin session lifetime.
func (c *Config) GetSessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Admin.SessionTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}
	if c.Display.FallbackColor != "" && !models.ValidColor(c.Display.FallbackColor) {
		return fmt.Errorf("display.fallback_color %q is not a hex color", c.Display.FallbackColor)
	}
	if c.Admin.SessionTTL != "" {
		if d, err := time.ParseDuration(c.Admin.SessionTTL); err != nil || d <= 0 {
			return fmt.Errorf("admin.session_ttl %q is not a positive duration", c.Admin.SessionTTL)
		}
	}
	if (c.Admin.Email == "") != (c.Admin.PasswordHash == "") {
		return errors.New("admin.email and admin.password_hash must be set together")
	}
	for key, r := range c.Validation.Ranges {
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("validation.ranges[%q]: min above max", key)
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
