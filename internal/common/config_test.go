package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "test-key")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.API.Mistral.APIKey)
	assert.Equal(t, "mistral-ocr-latest", cfg.API.Mistral.OCRModel)
	assert.Equal(t, "mistral-large-latest", cfg.API.Mistral.LLMModel)
	assert.Equal(t, 7, cfg.Processing.BatchSize)
	assert.Equal(t, 3, cfg.Processing.MaxRetries)
	assert.Equal(t, 2.0, cfg.Processing.RetryBackoffBase)
	assert.Equal(t, 60*time.Second, cfg.API.Mistral.Timeout)
}

func TestLoadConfig_FromYAML(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
api:
  mistral:
    api_key: file-key
    ocr_model: custom-ocr
processing:
  batch_size: 4
  max_retries: 1
  retry_backoff_base: 1.5
output:
  format: txt
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.API.Mistral.APIKey)
	assert.Equal(t, "custom-ocr", cfg.API.Mistral.OCRModel)
	assert.Equal(t, 4, cfg.Processing.BatchSize)
	assert.Equal(t, 1, cfg.Processing.MaxRetries)
	assert.Equal(t, 1.5, cfg.Processing.RetryBackoffBase)
	assert.Equal(t, "txt", cfg.Output.Format)
	// untouched keys keep defaults
	assert.Equal(t, "mistral-large-latest", cfg.API.Mistral.LLMModel)
}

func TestLoadConfig_EnvKeyWinsOverFile(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "env-key")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
api:
  mistral:
    api_key: file-key
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.API.Mistral.APIKey)
}

func TestLoadConfig_MissingAPIKeyIsFatal(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")

	_, err := LoadConfig("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "API key")
}

func TestConfigValidate_Bounds(t *testing.T) {
	base := func() *Config {
		c := DefaultConfig()
		c.API.Mistral.APIKey = "k"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.Processing.BatchSize = 0 }},
		{"negative retries", func(c *Config) { c.Processing.MaxRetries = -1 }},
		{"backoff base 1", func(c *Config) { c.Processing.RetryBackoffBase = 1 }},
		{"backoff base below 1", func(c *Config) { c.Processing.RetryBackoffBase = 0.5 }},
		{"zero workers", func(c *Config) { c.Processing.OCRWorkers = 0 }},
		{"bad format", func(c *Config) { c.Output.Format = "pdf" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	require.NoError(t, base().Validate())
}

func TestLoadPrompts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "prompts.yaml", `
text_cleanup:
  system_prompt: "Fix OCR artifacts."
  temperature: 0.2
`)

	p, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "Fix OCR artifacts.", p.TextCleanup.SystemPrompt)
	assert.Equal(t, 0.2, p.TextCleanup.Temperature)

	// missing file is not an error
	p, err = LoadPrompts(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, p.TextCleanup.SystemPrompt)
}
