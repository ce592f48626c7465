// internal/llm/client.go
package llm

import (
	"fmt"
	"strings"

	"mcp-nutrisnap/internal/config"
	"mcp-nutrisnap/internal/flows"
)

// NewClient builds the model client selected by cfg.Provider.
func NewClient(cfg config.Model) (flows.ModelClient, error) {
	opts := []Option{
		WithAPIKey(cfg.APIKey),
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.Timeout()),
		WithTemperature(cfg.Temperature),
		WithMaxTokens(cfg.MaxTokens),
	}

	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg.Name, opts...), nil
	case config.ProviderGemini:
		return NewGeminiClient(cfg.Name, opts...), nil
	case config.ProviderGateway:
		return NewGatewayClient(cfg.Name, opts...), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}
