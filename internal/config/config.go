// internal/config/config.go

// Package config loads service settings from an optional YAML file, then
// applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderGateway = "gateway"
)

type Config struct {
	Host    string  `yaml:"host"`
	Port    int     `yaml:"port"`
	LogPath string  `yaml:"log_path"`
	Model   Model   `yaml:"model"`
	Journal Journal `yaml:"journal"`
}

type Model struct {
	Provider    string  `yaml:"provider"`
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	TimeoutMS   int     `yaml:"timeout_ms"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type Journal struct {
	MaxEntries int `yaml:"max_entries"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Host: "0.0.0.0",
		Port: 8011,
		Model: Model{
			Provider:    ProviderGateway,
			TimeoutMS:   60000,
			Temperature: 0.1,
			MaxTokens:   2000,
		},
		Journal: Journal{MaxEntries: 200},
	}
}

// Load reads path over the defaults. An empty path skips the file. The
// environment is applied last, see ApplyEnv.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables and lowercases the
// provider name. getenv is os.Getenv outside of tests.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("NUTRISNAP_PROVIDER"); v != "" {
		c.Model.Provider = v
	}
	if v := getenv("NUTRISNAP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}

	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))
	switch c.Model.Provider {
	case ProviderGateway:
		setFromEnv(&c.Model.BaseURL, getenv("MCP_PROXY_URL"))
		setFromEnv(&c.Model.APIKey, getenv("MCP_PROXY_API_KEY"))
		setFromEnv(&c.Model.Name, getenv("OPENROUTER_MODEL"))
	case ProviderOpenAI:
		setFromEnv(&c.Model.BaseURL, getenv("OPENAI_BASE_URL"))
		setFromEnv(&c.Model.APIKey, getenv("OPENAI_API_KEY"))
	case ProviderGemini:
		setFromEnv(&c.Model.APIKey, getenv("GOOGLE_API_KEY"))
		setFromEnv(&c.Model.APIKey, getenv("GEMINI_API_KEY"))
	}

	setFromEnv(&c.Model.Name, getenv("NUTRISNAP_MODEL"))
}

func setFromEnv(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch strings.ToLower(c.Model.Provider) {
	case ProviderOpenAI, ProviderGemini, ProviderGateway:
	default:
		errs = append(errs, fmt.Errorf("unknown model provider %q", c.Model.Provider))
	}
	if c.Model.TimeoutMS < 0 {
		errs = append(errs, errors.New("model timeout must not be negative"))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model temperature %g out of range", c.Model.Temperature))
	}
	if c.Journal.MaxEntries < 0 {
		errs = append(errs, errors.New("journal max entries must not be negative"))
	}

	return errors.Join(errs...)
}

// Timeout is the model call timeout, zero meaning none.
func (m Model) Timeout() time.Duration {
	return time.Duration(m.TimeoutMS) * time.Millisecond
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
