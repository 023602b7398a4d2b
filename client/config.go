package client

import (
	"log/slog"
	"time"

	"golang.org/x/oauth2"
)

// Upstream providers.
const (
	ProviderAnthropic        = "anthropic"
	ProviderOpenAICompatible = "openai"
)

// DefaultMaxTokens is applied to requests that carry no limit.
const DefaultMaxTokens = 16384

const (
	anthropicBaseURL = "https://api.anthropic.com"
	openAIBaseURL    = "https://api.openai.com"

	anthropicTimeout = 180 * time.Second
	openAITimeout    = 60 * time.Second
)

// Config describes one upstream. It is copied by New and immutable
// afterwards.
type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	TokenSource oauth2.TokenSource
	Model       string
	MaxTokens   int
	Timeout     time.Duration
	Transport   Transport
	Logger      *slog.Logger
}

// NewAnthropicConfig returns a config for the canonical provider with
// its default endpoint and timeout.
func NewAnthropicConfig(apiKey, model string) Config {
	return Config{
		Provider: ProviderAnthropic,
		BaseURL:  anthropicBaseURL,
		APIKey:   apiKey,
		Model:    model,
		Timeout:  anthropicTimeout,
	}
}

// NewOpenAICompatibleConfig returns a config for an OpenAI-compatible
// provider. An empty baseURL selects the OpenAI endpoint.
func NewOpenAICompatibleConfig(baseURL, apiKey, model string) Config {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return Config{
		Provider: ProviderOpenAICompatible,
		BaseURL:  baseURL,
		APIKey:   apiKey,
		Model:    model,
		Timeout:  openAITimeout,
	}
}

func defaultBaseURL(provider string) string {
	if provider == ProviderAnthropic {
		return anthropicBaseURL
	}
	return openAIBaseURL
}

func defaultTimeout(provider string) time.Duration {
	if provider == ProviderAnthropic {
		return anthropicTimeout
	}
	return openAITimeout
}
