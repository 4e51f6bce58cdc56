package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("LLM_MODEL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, BackendSurrealDB, cfg.StoreBackend)
	assert.Equal(t, ProviderOpenAI, cfg.LLMProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "mongodb://127.0.0.1:27017/next-watch", cfg.MongoDBURI)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nextwatch.yaml")
	content := `
port: 4000
store_backend: mongodb
llm_timeout: 5s
cors_origins:
  - http://localhost:5173
  - https://nextwatch.example
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Port, "file value used when env unset")
	assert.Equal(t, BackendMemory, cfg.StoreBackend, "env overrides file")
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "https://nextwatch.example"}, cfg.CORSOrigins)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{
		StoreBackend: BackendMemory,
		LLMProvider:  ProviderOpenAI,
		OpenAIAPIKey: "sk-test",
		LLMTimeout:   time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.StoreBackend = "postgres" }, true},
		{"openai without key", func(c *Config) { c.OpenAIAPIKey = "" }, true},
		{"anthropic without key", func(c *Config) { c.LLMProvider = ProviderAnthropic }, true},
		{"ollama needs no key", func(c *Config) { c.LLMProvider = ProviderOllama; c.OpenAIAPIKey = "" }, false},
		{"bedrock uses the aws chain", func(c *Config) { c.LLMProvider = ProviderBedrock; c.OpenAIAPIKey = "" }, false},
		{"unknown provider", func(c *Config) { c.LLMProvider = "bard" }, true},
		{"zero timeout", func(c *Config) { c.LLMTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("recommendation saved", "id", "abc")

	assert.Contains(t, stderr.String(), "recommendation saved")
	assert.NotContains(t, stderr.String(), "hidden")
	assert.Contains(t, file.String(), `"msg":"recommendation saved"`)
	assert.Contains(t, file.String(), `"id":"abc"`)
}
