package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the relay daemon configuration. Fields missing from the
// file keep their defaults; credentials and addresses fall back to
// LLM_RELAY_* environment variables.
type Config struct {
	Listen       string       `yaml:"listen"`
	LogLevel     string       `yaml:"log_level"`
	AuthToken    string       `yaml:"auth_token"`
	Upstream     Upstream     `yaml:"upstream"`
	Models       []ModelAlias `yaml:"models"`
	CacheControl CacheControl `yaml:"cache_control"`
	ToolNames    ToolNames    `yaml:"tool_names"`
}

// Upstream selects and authenticates the provider behind the relay.
type Upstream struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	MaxTokens      int    `yaml:"max_tokens"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ModelAlias maps an inbound model id to the upstream model it serves.
type ModelAlias struct {
	ID       string `yaml:"id"`
	Upstream string `yaml:"upstream"`
}

// CacheControl configures cache breakpoint injection on relayed
// requests.
type CacheControl struct {
	Enabled        bool `yaml:"enabled"`
	MaxBreakpoints int  `yaml:"max_breakpoints"`
	MarkSystem     bool `yaml:"mark_system"`
	MarkHistory    bool `yaml:"mark_history"`
	MarkTools      bool `yaml:"mark_tools"`
}

// ToolNames configures tool-name encoding on relayed requests.
type ToolNames struct {
	Encode bool `yaml:"encode"`
}

// Default returns the configuration used when the file omits a field.
func Default() Config {
	return Config{
		Listen:   "127.0.0.1:8787",
		LogLevel: "info",
		Upstream: Upstream{
			Provider: "anthropic",
		},
		CacheControl: CacheControl{
			MaxBreakpoints: 4,
			MarkSystem:     true,
			MarkHistory:    true,
		},
	}
}

// Load reads the YAML file at path over the defaults, applies
// environment fallbacks and validates the result. An empty path skips
// the file and configures from environment alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv fills fields the file left empty.
func (c *Config) applyEnv() {
	c.Listen = orEnv(c.Listen, "LLM_RELAY_LISTEN")
	c.LogLevel = orEnv(c.LogLevel, "LLM_RELAY_LOG_LEVEL")
	c.AuthToken = orEnv(c.AuthToken, "LLM_RELAY_AUTH_TOKEN")
	c.Upstream.BaseURL = orEnv(c.Upstream.BaseURL, "LLM_RELAY_UPSTREAM_BASE_URL")
	c.Upstream.Model = orEnv(c.Upstream.Model, "LLM_RELAY_UPSTREAM_MODEL")
	c.Upstream.APIKey = orEnv(c.Upstream.APIKey, "LLM_RELAY_UPSTREAM_API_KEY")
	if c.Upstream.APIKey == "" {
		switch c.Upstream.Provider {
		case "openai":
			c.Upstream.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
		default:
			c.Upstream.APIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
		}
	}
}

// Validate performs sanity checks on the loaded configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen must be set")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Upstream.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("upstream.provider must be %q or %q, got %q", "anthropic", "openai", c.Upstream.Provider)
	}
	if strings.TrimSpace(c.Upstream.Model) == "" {
		return fmt.Errorf("upstream.model must be set")
	}
	if strings.TrimSpace(c.Upstream.APIKey) == "" {
		return fmt.Errorf("upstream.api_key must be set (or LLM_RELAY_UPSTREAM_API_KEY)")
	}
	if c.Upstream.MaxTokens < 0 {
		return fmt.Errorf("upstream.max_tokens must not be negative, got %d", c.Upstream.MaxTokens)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must not be negative, got %d", c.Upstream.TimeoutSeconds)
	}
	if c.CacheControl.Enabled && c.CacheControl.MaxBreakpoints < 1 {
		return fmt.Errorf("cache_control.max_breakpoints must be at least 1, got %d", c.CacheControl.MaxBreakpoints)
	}
	for i, alias := range c.Models {
		if strings.TrimSpace(alias.ID) == "" {
			return fmt.Errorf("models[%d]: id must not be empty", i)
		}
		if strings.TrimSpace(alias.Upstream) == "" {
			return fmt.Errorf("models[%d]: upstream must not be empty", i)
		}
	}
	return nil
}

// Resolve maps an inbound model id through the alias table. Unknown ids
// pass through verbatim.
func (c Config) Resolve(model string) string {
	for _, alias := range c.Models {
		if alias.ID == model {
			return alias.Upstream
		}
	}
	return model
}

// ParseLevel maps a config log level onto slog.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

func orEnv(value, key string) string {
	if value != "" {
		return value
	}
	return strings.TrimSpace(os.Getenv(key))
}
