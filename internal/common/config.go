// Package common provides configuration loading and the shared error
// taxonomy. Configuration comes from YAML files with environment overrides;
// a .env file is honored when present.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	API        APIConfig        `yaml:"api"`
	Processing ProcessingConfig `yaml:"processing"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// APIConfig groups external service settings.
type APIConfig struct {
	Mistral MistralConfig `yaml:"mistral"`
}

// MistralConfig holds Mistral API settings
type MistralConfig struct {
	APIKey   string        `yaml:"api_key"`
	OCRModel string        `yaml:"ocr_model"`
	LLMModel string        `yaml:"llm_model"`
	BaseURL  string        `yaml:"base_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ProcessingConfig holds orchestration settings
type ProcessingConfig struct {
	BatchSize        int     `yaml:"batch_size"`
	MaxRetries       int     `yaml:"max_retries"`
	RetryBackoffBase float64 `yaml:"retry_backoff_base"`
	OCRWorkers       int     `yaml:"ocr_workers"`
}

// OutputConfig holds document output settings
type OutputConfig struct {
	Format           string `yaml:"format"` // docx or txt
	FilenameTemplate string `yaml:"filename_template"`
	PandocPath       string `yaml:"pandoc_path"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Prompts holds the prompt configuration loaded from prompts.yaml.
type Prompts struct {
	TextCleanup PromptConfig `yaml:"text_cleanup"`
}

// PromptConfig is one named prompt with its sampling temperature.
type PromptConfig struct {
	SystemPrompt string  `yaml:"system_prompt"`
	Temperature  float64 `yaml:"temperature"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Mistral: MistralConfig{
				OCRModel: "mistral-ocr-latest",
				LLMModel: "mistral-large-latest",
				BaseURL:  "https://api.mistral.ai/v1",
				Timeout:  60 * time.Second,
			},
		},
		Processing: ProcessingConfig{
			BatchSize:        7,
			MaxRetries:       3,
			RetryBackoffBase: 2,
			OCRWorkers:       1,
		},
		Output: OutputConfig{
			Format:           "docx",
			FilenameTemplate: "OUTPUT_{timestamp}.docx",
			PandocPath:       "pandoc",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads configuration from a YAML file and applies environment
// overrides. An empty path loads defaults plus the environment.
func LoadConfig(path string) (*Config, error) {
	// A .env next to the binary or cwd is optional.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadPrompts reads the prompts YAML. A missing file yields empty prompts;
// callers decide whether that is acceptable.
func LoadPrompts(path string) (*Prompts, error) {
	p := &Prompts{}
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	return p, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// MISTRAL_API_KEY always wins over the file value.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MISTRAL_API_KEY"); v != "" {
		cfg.API.Mistral.APIKey = v
	}
	if v := os.Getenv("MISTRAL_BASE_URL"); v != "" {
		cfg.API.Mistral.BaseURL = v
	}
	if v := os.Getenv("NOVAOCR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NOVAOCR_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the loaded configuration. A missing API key is fatal and
// must be reported before any processing begins.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.Mistral.APIKey) == "" {
		return NewConfigError("Mistral API key is required: set api.mistral.api_key or MISTRAL_API_KEY")
	}
	if c.Processing.BatchSize < 1 {
		return NewConfigError(fmt.Sprintf("processing.batch_size must be >= 1, got %d", c.Processing.BatchSize))
	}
	if c.Processing.MaxRetries < 0 {
		return NewConfigError(fmt.Sprintf("processing.max_retries must be >= 0, got %d", c.Processing.MaxRetries))
	}
	if c.Processing.RetryBackoffBase <= 1 {
		return NewConfigError(fmt.Sprintf("processing.retry_backoff_base must be > 1, got %v", c.Processing.RetryBackoffBase))
	}
	if c.Processing.OCRWorkers < 1 {
		return NewConfigError(fmt.Sprintf("processing.ocr_workers must be >= 1, got %d", c.Processing.OCRWorkers))
	}
	switch c.Output.Format {
	case "docx", "txt":
	default:
		return NewConfigError(fmt.Sprintf("output.format must be docx or txt, got %q", c.Output.Format))
	}
	return nil
}

// ResolvePromptsPath returns the prompts.yaml expected to sit next to the
// main config file.
func ResolvePromptsPath(configPath string) string {
	if configPath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(configPath), "prompts.yaml")
}
