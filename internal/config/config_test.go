package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/adhikaar-ai/adhikaar/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Port != 8080 || cfg.Database.Driver != DriverSQLite {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Retention() != 30*24*time.Hour {
		t.Fatalf("Retention() = %v", cfg.Retention())
	}
	if cfg.DefaultMode() != models.ModeDark {
		t.Fatalf("DefaultMode() = %q", cfg.DefaultMode())
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `app:
  name: "Adhikaar Test"
  port: 9090
database:
  driver: "memory"
themes:
  default_mode: "light"
  retention_days: 7
  purge_cron: "*/15 * * * *"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Name != "Adhikaar Test" || cfg.App.Port != 9090 {
		t.Fatalf("app config not loaded: %+v", cfg.App)
	}
	if cfg.App.ShutdownTimeoutSeconds != 30 {
		t.Fatalf("default shutdown timeout lost: %d", cfg.App.ShutdownTimeoutSeconds)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Fatalf("driver = %q", cfg.Database.Driver)
	}
	if cfg.DefaultMode() != models.ModeLight || cfg.Retention() != 7*24*time.Hour {
		t.Fatalf("themes config not loaded: %+v", cfg.Themes)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Port != 7070 || cfg.App.Environment != "production" {
		t.Fatalf("env overrides not applied: %+v", cfg.App)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "no_name", mutate: func(c *Config) { c.App.Name = "" }, wantErr: "app name is required"},
		{name: "bad_port", mutate: func(c *Config) { c.App.Port = 0 }, wantErr: "app port"},
		{name: "no_driver", mutate: func(c *Config) { c.Database.Driver = "" }, wantErr: "database driver is required"},
		{name: "bad_driver", mutate: func(c *Config) { c.Database.Driver = "turso" }, wantErr: "unsupported database driver"},
		{name: "no_filename", mutate: func(c *Config) { c.Database.Filename = "" }, wantErr: "filename is required"},
		{name: "bad_mode", mutate: func(c *Config) { c.Themes.DefaultMode = "sepia" }, wantErr: "default_mode"},
		{name: "bad_retention", mutate: func(c *Config) { c.Themes.RetentionDays = 0 }, wantErr: "retention_days"},
		{name: "bad_cron", mutate: func(c *Config) { c.Themes.PurgeCron = "every night" }, wantErr: "purge_cron"},
		{name: "bad_cron_ignored_when_disabled", mutate: func(c *Config) {
			c.Themes.PurgeEnabled = false
			c.Themes.PurgeCron = "every night"
		}},
		{name: "bad_rate_limit", mutate: func(c *Config) { c.RateLimit.ImportsPerHour = 0 }, wantErr: "rate_limit"},
		{name: "rate_limit_ignored_when_disabled", mutate: func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.WritesPerMinute = 0
		}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Fatalf("Validate() error = %v, want %q", err, test.wantErr)
			}
		})
	}
}
