package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default values when nothing is configured", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "prdesk", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "sqlite", cfg.Database.Driver)
		assert.Equal(t, "prdesk.db", cfg.Database.Path)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
		assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTokenExpiration)
		assert.False(t, cfg.Workflow.OutcomeScanComments)
		assert.Equal(t, "http://localhost:8080", cfg.Client.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.Client.PollInterval)
		assert.NotEmpty(t, cfg.Client.TokenFile)
	})

	t.Run("reads config.toml and .env, env vars win", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		writeFile(t, filepath.Join(dir, "config.toml"), `
[app]
port = "9090"

[database]
driver = "postgres"
dbname = "pricing"

[workflow]
outcome_scan_comments = true

[client]
poll_interval = "3s"
`)
		writeFile(t, filepath.Join(dir, ".env"), "PRDESK_JWT_ISSUER=dotenv-issuer\n")
		t.Setenv("PRDESK_APP_PORT", "7070")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "7070", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "pricing", cfg.Database.DBName)
		assert.True(t, cfg.Workflow.OutcomeScanComments)
		assert.Equal(t, 3*time.Second, cfg.Client.PollInterval)
		assert.Equal(t, "dotenv-issuer", cfg.JWT.Issuer)
		os.Unsetenv("PRDESK_JWT_ISSUER")
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, "[seed]\ncount = 3\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Seed.Count)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"idle exceeds open", func(c *Config) { c.Database.MaxIdleConns = 100 }, "max_idle_conns"},
		{"bad base url", func(c *Config) { c.Client.BaseURL = "not a url" }, "client.base_url"},
		{"production short secret", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = "short"
		}, "jwt.secret"},
		{"production wildcard cors", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = "0123456789abcdef0123456789abcdef"
			c.HTTP.CORSAllowOrigins = []string{"*"}
		}, "cors_allow_origins"},
		{"production postgres without tls", func(c *Config) {
			c.App.Env = "production"
			c.JWT.Secret = "0123456789abcdef0123456789abcdef"
			c.Database.Driver = "postgres"
		}, "sslmode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", DBName: "prdesk", SSLMode: "require"}
	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/prdesk?sslmode=require", d.DSN())
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
