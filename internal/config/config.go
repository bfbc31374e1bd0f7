// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"

	EnvironmentDevelopment = "development"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type ThemesConfig struct {
	DefaultMode   string `yaml:"default_mode"`
	RetentionDays int    `yaml:"retention_days"`
	PurgeEnabled  bool   `yaml:"purge_enabled"`
	PurgeCron     string `yaml:"purge_cron"`
}

type RateLimitConfig struct {
	Enabled         bool `yaml:"enabled"`
	WritesPerMinute int  `yaml:"writes_per_minute"`
	ImportsPerHour  int  `yaml:"imports_per_hour"`
	TrustProxy      bool `yaml:"trust_proxy"`
}

type Config struct {
	App struct {
		Name                   string `yaml:"name"`
		Environment            string `yaml:"environment"`
		Port                   int    `yaml:"port"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`

	Themes ThemesConfig `yaml:"themes"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	var cfg Config
	cfg.App.Name = "Adhikaar"
	cfg.App.Environment = EnvironmentDevelopment
	cfg.App.Port = 8080
	cfg.App.ShutdownTimeoutSeconds = 30
	cfg.Database.Driver = DriverSQLite
	cfg.Database.Filename = "data/adhikaar.db"
	cfg.Themes.DefaultMode = string(models.DefaultMode)
	cfg.Themes.RetentionDays = 30
	cfg.Themes.PurgeEnabled = true
	cfg.Themes.PurgeCron = "0 3 * * *"
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.WritesPerMinute = 60
	cfg.RateLimit.ImportsPerHour = 20
	return &cfg
}

// Load loads .env next to the config file, then the YAML config on top of
// Default(), then environment overrides. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		envPath := filepath.Join(filepath.Dir(configPath), ".env")
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}

		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if value, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("PORT must be an integer: %w", err)
		}
		c.App.Port = port
	}
	if value, ok := os.LookupEnv("ENVIRONMENT"); ok {
		c.App.Environment = value
	}
	if value, ok := os.LookupEnv("DATABASE_FILENAME"); ok {
		c.Database.Filename = value
	}
	return nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app port must be between 1 and 65535")
	}
	if c.App.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	case DriverMemory:
	case "":
		return fmt.Errorf("database driver is required")
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := models.ParseMode(c.Themes.DefaultMode); err != nil {
		return fmt.Errorf("themes default_mode: %w", err)
	}
	if c.Themes.RetentionDays <= 0 {
		return fmt.Errorf("themes retention_days must be positive")
	}
	if c.Themes.PurgeEnabled {
		if _, err := cron.ParseStandard(c.Themes.PurgeCron); err != nil {
			return fmt.Errorf("themes purge_cron %q: %w", c.Themes.PurgeCron, err)
		}
	}
	if c.RateLimit.Enabled && (c.RateLimit.WritesPerMinute <= 0 || c.RateLimit.ImportsPerHour <= 0) {
		return fmt.Errorf("rate_limit limits must be positive when enabled")
	}

	return nil
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.App.ShutdownTimeoutSeconds) * time.Second
}

// Retention is how long soft-deleted themes are kept before purge.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Themes.RetentionDays) * 24 * time.Hour
}

func (c *Config) DefaultMode() models.Mode {
	mode, err := models.ParseMode(c.Themes.DefaultMode)
	if err != nil {
		return models.DefaultMode
	}
	return mode
}
