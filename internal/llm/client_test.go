package llm

import (
	"testing"

	"mcp-nutrisnap/internal/config"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		provider string
		check    func(t *testing.T, client any)
	}{
		{provider: "openai", check: func(t *testing.T, client any) {
			c, ok := client.(*OpenAIClient)
			if !ok || c.baseURL != defaultOpenAIBaseURL {
				t.Fatalf("unexpected client %#v", client)
			}
		}},
		{provider: "Gemini", check: func(t *testing.T, client any) {
			c, ok := client.(*GeminiClient)
			if !ok || c.model != defaultGeminiModel {
				t.Fatalf("unexpected client %#v", client)
			}
		}},
		{provider: "gateway", check: func(t *testing.T, client any) {
			c, ok := client.(*GatewayClient)
			if !ok || c.baseURL != "http://proxy:9876" || c.apiKey != "k" {
				t.Fatalf("unexpected client %#v", client)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := config.Default().Model
			cfg.Provider = tt.provider
			cfg.Name = ""
			cfg.APIKey = "k"
			if tt.provider == "gateway" {
				cfg.BaseURL = "http://proxy:9876/"
			}
			client, err := NewClient(cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, client)
		})
	}
}

func TestNewClientUnknownProvider(t *testing.T) {
	cfg := config.Default().Model
	cfg.Provider = "ollama"
	if _, err := NewClient(cfg); err == nil {
		t.Fatal("expected unknown provider error")
	}
}
