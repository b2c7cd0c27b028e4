package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gruppenwerk/outreach-cli/internal/model"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./segments/rules.yaml", cfg.RulesPath)
	assert.Equal(t, "./promo_materials/links.yaml", cfg.LinksPath)
	assert.Equal(t, "./templates", cfg.TemplatesDir)
	assert.Equal(t, "./data/output", cfg.OutputDir)
	assert.True(t, cfg.DuplicateCheck)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, "gruppenwerk", cfg.CampaignPrefix)
	assert.Equal(t, "Axel Seehafer", cfg.SenderName)

	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, ProviderAnthropic, cfg.AI.Provider)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.AI.Model)
	assert.Equal(t, 150, cfg.AI.MaxTokens)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 0.001)
	assert.Equal(t, 3, cfg.AI.MaxRetries)
	assert.Equal(t, 10, cfg.AI.Concurrency)
	assert.InDelta(t, 1.0, cfg.AI.RetryDelaySecs, 0.001)
	assert.InDelta(t, 30.0, cfg.AI.MaxBackoffSecs, 0.001)
	assert.Zero(t, cfg.AI.Jitter)
	assert.Zero(t, cfg.AI.RequestsPerSecond)
	assert.Zero(t, cfg.AI.BreakerFailures)
	assert.Equal(t, "Hamburg", cfg.AI.CityDefault)

	assert.Equal(t, ",", cfg.Export.Separator)
	assert.Equal(t, "utf-8", cfg.Export.Encoding)
	assert.Equal(t, 100, cfg.Export.MinBodyLength)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Log.Dir)

	assert.NoError(t, cfg.Validate("generate"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
batch_size: 20
campaign_prefix: acme
ai:
  provider: openai
  model: gpt-4o-mini
  concurrency: 4
export:
  separator: ";"
  encoding: latin-1
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, "acme", cfg.CampaignPrefix)
	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, 4, cfg.AI.Concurrency)
	assert.Equal(t, ";", cfg.Export.Separator)
	assert.Equal(t, "latin-1", cfg.Export.Encoding)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.AI.MaxRetries)
	assert.Equal(t, "./templates", cfg.TemplatesDir)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sender_name: Jana Werner\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Jana Werner", cfg.SenderName)
}

func TestLoadExplicitPathMissing(t *testing.T) {
	chdirTemp(t)

	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
batch_size: 20
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("OUTREACH_BATCH_SIZE", "5")
	t.Setenv("OUTREACH_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OUTREACH_AI_CONCURRENCY=7\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("OUTREACH_AI_CONCURRENCY") }) //nolint:errcheck

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.AI.Concurrency)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	t.Setenv("OPENAI_API_KEY", "sk-openai-env")

	assert.Equal(t, "sk-explicit", AIConfig{Provider: ProviderAnthropic, Key: "sk-explicit"}.APIKey())
	assert.Equal(t, "sk-ant-env", AIConfig{Provider: ProviderAnthropic}.APIKey())
	assert.Equal(t, "sk-openai-env", AIConfig{Provider: ProviderOpenAI}.APIKey())
}

func TestInitLoggerConsole(t *testing.T) {
	file, err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.Empty(t, file)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	_, err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	_, err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestInitLoggerWithDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	file, err := InitLogger(LogConfig{Level: "info", Format: "json", Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(file))
	assert.FileExists(t, file)

	zap.L().Info("written to run log")
	_ = zap.L().Sync()
}

func TestRunLogName(t *testing.T) {
	ts := time.Date(2026, 3, 9, 14, 5, 7, 0, time.UTC)
	assert.Equal(t, "2026-03-09_140507_generation.log", RunLogName(ts))
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{RulesPath: "rules.yaml", BatchSize: 50}
	cfg.AI.Provider = ProviderAnthropic
	cfg.AI.Concurrency = 10
	cfg.AI.MaxRetries = 3
	cfg.AI.RetryDelaySecs = 1
	cfg.Export.Separator = ","
	cfg.Export.Encoding = "utf-8"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		mode    string
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }, wantErr: "batch_size must be at least 1"},
		{name: "zero concurrency", mutate: func(c *Config) { c.AI.Concurrency = 0 }, wantErr: "ai.concurrency must be at least 1"},
		{name: "zero retries", mutate: func(c *Config) { c.AI.MaxRetries = 0 }, wantErr: "ai.max_retries must be at least 1"},
		{name: "negative delay", mutate: func(c *Config) { c.AI.RetryDelaySecs = -1 }, wantErr: "ai.retry_delay_secs"},
		{name: "negative max backoff", mutate: func(c *Config) { c.AI.MaxBackoffSecs = -1 }, wantErr: "ai.max_backoff_secs"},
		{name: "jitter above one", mutate: func(c *Config) { c.AI.Jitter = 1.5 }, wantErr: "ai.jitter must be between 0 and 1"},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "mistral" }, wantErr: `ai.provider "mistral"`},
		{name: "unknown encoding", mutate: func(c *Config) { c.Export.Encoding = "utf-16" }, wantErr: `export.encoding "utf-16"`},
		{name: "encoding case insensitive", mutate: func(c *Config) { c.Export.Encoding = "CP1252" }},
		{name: "multi char separator", mutate: func(c *Config) { c.Export.Separator = ";;" }, wantErr: "export.separator"},
		{name: "missing rules path", mutate: func(c *Config) { c.RulesPath = "" }, wantErr: "rules_path is required"},
		{name: "serve port out of range", mutate: func(c *Config) { c.Server.Port = 0 }, mode: "serve", wantErr: "server.port 0"},
		{name: "port ignored outside serve", mutate: func(c *Config) { c.Server.Port = 0 }, mode: "generate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)

			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, model.ErrConfiguration))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := validDefaults()
	cfg.BatchSize = 0
	cfg.AI.Concurrency = 0

	err := cfg.Validate("generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
	assert.Contains(t, err.Error(), "ai.concurrency")
}
