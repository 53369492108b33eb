package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	yaml := `
env: stage
api:
  session_id: sid-123
  timeout: 10s
database:
  host: localhost
  port: 5432
  name: used_symbols
  user: reader
  password: secret
feed:
  url: ws://feed.stage.zorg.sh/ws
resolver:
  week_number: 3
  include_demo: true
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Env != "stage" {
		t.Errorf("Env = %q, want %q", cfg.Env, "stage")
	}
	if cfg.API.SessionID != "sid-123" {
		t.Errorf("API.SessionID = %q, want %q", cfg.API.SessionID, "sid-123")
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 10*time.Second)
	}
	if cfg.Database.Name != "used_symbols" {
		t.Errorf("Database.Name = %q, want %q", cfg.Database.Name, "used_symbols")
	}
	if cfg.Feed.URL != "ws://feed.stage.zorg.sh/ws" {
		t.Errorf("Feed.URL = %q", cfg.Feed.URL)
	}
	if cfg.Resolver.WeekNumber != 3 || !cfg.Resolver.IncludeDemo {
		t.Errorf("Resolver = %+v", cfg.Resolver)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_SDB_SESSION", "secret123")

	yaml := `
api:
  session_id: ${TEST_SDB_SESSION}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.SessionID != "secret123" {
		t.Errorf("API.SessionID = %q, want %q", cfg.API.SessionID, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
api:
  session_id: sid
database:
  host: localhost
  name: used_symbols
  user: reader
  password: secret
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Env != DefaultEnv {
		t.Errorf("Env = %q, want default %q", cfg.Env, DefaultEnv)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.API.MaxRetries != DefaultMaxRetries {
		t.Errorf("API.MaxRetries = %d, want %d", cfg.API.MaxRetries, DefaultMaxRetries)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Database.SSLMode != DefaultDBSSLMode {
		t.Errorf("Database.SSLMode = %q, want %q", cfg.Database.SSLMode, DefaultDBSSLMode)
	}
	if cfg.Feed.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("Feed.ReconnectBaseDelay = %v, want %v",
			cfg.Feed.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env: "prod",
			API: APIConfig{SessionID: "sid", MaxRetries: 3},
			Database: DBConfig{
				Host: "localhost", Port: 5432, Name: "db", User: "u",
				Password: "p", MaxConns: 10, MinConns: 2,
			},
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	t.Run("no database is fine", func(t *testing.T) {
		cfg := valid()
		cfg.Database = DBConfig{}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad env", func(c *Config) { c.Env = "production" }},
		{"missing session", func(c *Config) { c.API.SessionID = "" }},
		{"db without user", func(c *Config) { c.Database.User = "" }},
		{"db min over max", func(c *Config) { c.Database.MinConns = 20 }},
		{"week number out of range", func(c *Config) { c.Resolver.WeekNumber = 6 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
