package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.box.com/2.0", cfg.Box.BaseURL)
	assert.Equal(t, "https://api.box.com/oauth2/token", cfg.Box.TokenURL)
	assert.InDelta(t, 10.0, cfg.Box.RateLimit, 0.001)
	assert.Equal(t, "enterprise", cfg.Metadata.Scope)
	assert.Equal(t, "invoicePO", cfg.Metadata.TemplateKey)
	assert.Equal(t, "experimental", cfg.Metadata.Confidence)
	assert.Equal(t, "box", cfg.Metadata.Suggester)
	assert.False(t, cfg.Metadata.LenientDates)
	assert.False(t, cfg.Metadata.StrictPatch)
	assert.Equal(t, 5*time.Minute, cfg.Search.StalenessBound)
	assert.Equal(t, 100, cfg.Search.PageLimit)
	assert.Equal(t, "invoiceNumber", cfg.Search.OrderBy)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "boxflow.db", cfg.Store.DatabaseURL)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.InDelta(t, 0.25, cfg.Retry.JitterFraction, 0.001)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrentFiles)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
box:
  enterprise_id: "12345"
metadata:
  template_key: invoicePOv2
  lenient_dates: true
search:
  staleness_bound: 90s
store:
  driver: postgres
  database_url: postgres://localhost/boxflow
log:
  level: debug
  format: console
server:
  cors_origins: ["https://app.example.com"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Box.EnterpriseID)
	assert.Equal(t, "invoicePOv2", cfg.Metadata.TemplateKey)
	assert.True(t, cfg.Metadata.LenientDates)
	assert.Equal(t, 90*time.Second, cfg.Search.StalenessBound)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSOrigins)
	// Unset keys keep their defaults.
	assert.Equal(t, "enterprise", cfg.Metadata.Scope)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("BOXFLOW_STORE_DRIVER", "postgres")
	t.Setenv("BOXFLOW_LOG_LEVEL", "warn")
	t.Setenv("BOXFLOW_BOX_CLIENT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "s3cret", cfg.Box.ClientSecret)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("box: [unterminated"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "invalid", Format: "json"}))
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Box.ClientID = "id"
	cfg.Box.ClientSecret = "secret"
	cfg.Box.EnterpriseID = "123"
	cfg.Metadata.Scope = "enterprise"
	cfg.Metadata.TemplateKey = "invoicePO"
	cfg.Metadata.Suggester = "box"
	cfg.Search.StalenessBound = 5 * time.Minute
	cfg.Search.PageLimit = 100
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "boxflow.db"
	cfg.Server.Port = 8080
	cfg.Server.WebhookPrimaryKey = "primary"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "box ok", mode: ModeBox},
		{name: "developer token skips ccg", mode: ModeBox, mutate: func(c *Config) {
			c.Box = BoxConfig{DeveloperToken: "dev"}
		}},
		{name: "box missing secret", mode: ModeBox, mutate: func(c *Config) { c.Box.ClientSecret = "" }, wantErr: "ClientSecret: cannot be blank"},
		{name: "reconcile ok", mode: ModeReconcile},
		{name: "reconcile missing template key", mode: ModeReconcile, mutate: func(c *Config) { c.Metadata.TemplateKey = "" }, wantErr: "TemplateKey"},
		{name: "reconcile bad suggester", mode: ModeReconcile, mutate: func(c *Config) { c.Metadata.Suggester = "gpt" }, wantErr: "Suggester"},
		{name: "claude needs key", mode: ModeReconcile, mutate: func(c *Config) { c.Metadata.Suggester = "claude" }, wantErr: "anthropic.key is required"},
		{name: "claude with key", mode: ModeReconcile, mutate: func(c *Config) {
			c.Metadata.Suggester = "claude"
			c.Anthropic.Key = "sk-ant"
		}},
		{name: "search ok", mode: ModeSearch},
		{name: "search page limit too big", mode: ModeSearch, mutate: func(c *Config) { c.Search.PageLimit = 500 }, wantErr: "PageLimit"},
		{name: "file request ok", mode: ModeFileRequest},
		{name: "serve ok", mode: ModeServe},
		{name: "serve missing webhook key", mode: ModeServe, mutate: func(c *Config) { c.Server.WebhookPrimaryKey = "" }, wantErr: "WebhookPrimaryKey"},
		{name: "serve bad port", mode: ModeServe, mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "Port"},
		{name: "store ok", mode: ModeStore},
		{name: "store bad driver", mode: ModeStore, mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: "Driver"},
		{name: "unknown mode", mode: "enrichment", wantErr: "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
