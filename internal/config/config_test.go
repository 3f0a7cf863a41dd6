package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "qwen2.5:14b", cfg.Provider.Model)
	assert.Equal(t, cfg.Provider.Model, cfg.Provider.NormalizeModel, "normalization falls back to the chat model")
	assert.Equal(t, 45*time.Second, cfg.Timeouts.Synthesis)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Intents)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
provider:
  base_url: https://api.example.com/v1
  api_key: $FN_TEST_KEY
  model: gpt-4o-mini
timeouts:
  synthesis: 30s
triggers:
  file: triggers.yaml
`), 0o644))

	t.Setenv("FN_TEST_KEY", "sk-test")
	t.Setenv("FOUNDERNOTE_LOG_LEVEL", "debug")
	t.Setenv("FOUNDERNOTE_CLIENT_USER_ID", "founder-1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Provider.Model)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Synthesis)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Chat, "unset keys keep defaults")
	assert.Equal(t, "triggers.yaml", cfg.Triggers.File)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "founder-1", cfg.Client.UserID)
}

func TestLoad_NoFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Provider.Name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no base url", func(c *Config) { c.Provider.BaseURL = "" }, "base_url"},
		{"no model", func(c *Config) { c.Provider.Model = "" }, "provider.model"},
		{"negative retries", func(c *Config) { c.Provider.MaxRetries = -1 }, "max_retries"},
		{"hot temperature", func(c *Config) { c.Provider.Temperature = 3 }, "temperature"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
