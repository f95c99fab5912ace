// Package config handles configuration loading from files, defaults, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrNotFound is returned by Load when no config file exists and the
// environment does not name a model either.
var ErrNotFound = errors.New("no configuration found")

// Config holds the application configuration.
type Config struct {
	LLM LLMConfig `toml:"llm"`
	UI  UIConfig  `toml:"ui"`
}

// UIConfig holds terminal output settings.
type UIConfig struct {
	Color bool `toml:"color"`
}

// LLMConfig holds LLM provider settings and the retry policy.
type LLMConfig struct {
	Provider      string   `toml:"provider"`              // "openai", "ollama", "lmstudio", "copilot"
	Model         string   `toml:"model"`                 // e.g., "gpt-4o-mini"
	APIKey        string   `toml:"api_key,omitempty"`     // required by remote providers
	BaseURL       string   `toml:"base_url,omitempty"`    // e.g., "http://localhost:11434"
	Temperature   *float64 `toml:"temperature,omitempty"` // provider default when unset
	MaxTokens     *int     `toml:"max_tokens,omitempty"`  // provider default when unset
	Timeout       float64  `toml:"timeout,omitempty"`     // seconds, per call
	MaxAttempts   int      `toml:"max_attempts"`          // total attempts including the first
	BackoffFactor float64  `toml:"backoff_factor"`        // delay before retry k is factor^k seconds
}

// Default provider and retry policy values.
const (
	DefaultProvider      = "openai"
	DefaultModel         = "gpt-4o-mini"
	DefaultTimeout       = 60.0
	DefaultMaxAttempts   = 3
	DefaultBackoffFactor = 2.0
)

// Default returns the default configuration.
// The model is left empty: it must come from the file or the environment.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:      DefaultProvider,
			Timeout:       DefaultTimeout,
			MaxAttempts:   DefaultMaxAttempts,
			BackoffFactor: DefaultBackoffFactor,
		},
		UI: UIConfig{
			Color: true,
		},
	}
}

// Template returns the configuration written by `q4s config --init`.
func Template() *Config {
	cfg := Default()
	cfg.LLM.Model = DefaultModel
	return cfg
}

// DefaultConfigPath returns the default config file path.
// Q4S_CONFIG takes precedence over ~/.config/q4s/config.toml.
func DefaultConfigPath() string {
	if v := os.Getenv("Q4S_CONFIG"); v != "" {
		return expandPath(v)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "q4s", "config.toml")
}

// Load loads configuration from the default path, merging with defaults and env vars.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigPath())
}

// LoadLLM is the configuration supplier used by the LLM client.
func LoadLLM() (LLMConfig, error) {
	cfg, err := Load()
	if err != nil {
		return LLMConfig{}, err
	}
	return cfg.LLM, nil
}

// LoadFrom loads configuration from the specified path.
// It starts with defaults, overlays file config if it exists, then applies env overrides.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	found, err := loadFromFile(path, cfg)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if !found && cfg.LLM.Model == "" {
		return nil, fmt.Errorf("%w: create %s or set Q4S_LLM_MODEL", ErrNotFound, path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads config from a file if it exists and reports whether it did.
func loadFromFile(path string, cfg *Config) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return false, fmt.Errorf("parsing config file: %w", err)
	}

	return true, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables take precedence over file config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("Q4S_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("Q4S_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("Q4S_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	} else if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("Q4S_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("Q4S_LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("Q4S_LLM_TEMPERATURE: %w", err)
		}
		cfg.LLM.Temperature = &f
	}
	if v := os.Getenv("Q4S_LLM_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Q4S_LLM_MAX_TOKENS: %w", err)
		}
		cfg.LLM.MaxTokens = &n
	}
	if v := os.Getenv("Q4S_LLM_TIMEOUT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("Q4S_LLM_TIMEOUT: %w", err)
		}
		cfg.LLM.Timeout = f
	}
	if v := os.Getenv("Q4S_LLM_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Q4S_LLM_MAX_ATTEMPTS: %w", err)
		}
		cfg.LLM.MaxAttempts = n
	}
	if v := os.Getenv("Q4S_LLM_BACKOFF_FACTOR"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("Q4S_LLM_BACKOFF_FACTOR: %w", err)
		}
		cfg.LLM.BackoffFactor = f
	}
	return nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	return c.LLM.Validate()
}

// Validate checks the LLM settings. It does not fill in missing required fields.
func (c LLMConfig) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("llm.model must be set")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.BackoffFactor < 0 {
		return fmt.Errorf("llm.backoff_factor must not be negative, got %v", c.BackoffFactor)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative, got %v", c.Timeout)
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		return fmt.Errorf("llm.temperature must be between 0 and 2, got %v", *c.Temperature)
	}
	if c.MaxTokens != nil && *c.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be positive, got %d", *c.MaxTokens)
	}
	return nil
}

// TimeoutDuration returns the per-call timeout, or zero when none is configured.
func (c LLMConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return 0
	}
	return time.Duration(c.Timeout * float64(time.Second))
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigPath())
}

// SaveTo writes the configuration to the specified path.
// The file may hold an API key, so it is created with owner-only permissions.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
