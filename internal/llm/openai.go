// internal/llm/openai.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mcp-nutrisnap/internal/flows"
	"mcp-nutrisnap/internal/prompt"
	"mcp-nutrisnap/internal/schema"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient talks to any OpenAI-compatible /chat/completions endpoint.
// Photos are sent as image_url parts and the output contract as a
// json_schema response format.
type OpenAIClient struct {
	settings
}

var _ flows.ModelClient = (*OpenAIClient)(nil)

func NewOpenAIClient(model string, opts ...Option) *OpenAIClient {
	return &OpenAIClient{settings: newSettings(model, defaultOpenAIBaseURL, opts)}
}

type chatCompletionRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format,omitempty"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type       string           `json:"type"`
	JSONSchema jsonSchemaObject `json:"json_schema"`
}

type jsonSchemaObject struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Content json.RawMessage `json:"content"`
	Refusal string          `json:"refusal,omitempty"`
}

func (c *OpenAIClient) Generate(ctx context.Context, req *flows.ModelRequest) (any, error) {
	if c.model == "" {
		return nil, errors.New("openai: model is required")
	}
	if req == nil || req.Prompt == nil {
		return nil, errors.New("openai: request has no prompt")
	}

	body := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: jsonOnlyInstruction},
			{Role: "user", Content: openAIContent(req.Prompt)},
		},
		ResponseFormat: openAIResponseFormat(req.Output, c.strict),
		MaxTokens:      c.maxTokens,
		Temperature:    c.temperature,
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp chatCompletionResponse
	if err := postJSON(ctx, c.httpClient, "openai", c.baseURL+"/chat/completions", headers, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no response choices returned")
	}

	message := resp.Choices[0].Message
	if message.Refusal != "" {
		return nil, fmt.Errorf("openai: model refused: %s", message.Refusal)
	}
	text, err := openAIMessageText(message.Content)
	if err != nil {
		return nil, err
	}
	return DecodeStructured(text)
}

func openAIContent(p *prompt.Prompt) []chatContentPart {
	parts := make([]chatContentPart, 0, len(p.Parts))
	for _, part := range p.Parts {
		if part.Media != nil {
			parts = append(parts, chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: part.Media.URL}})
			continue
		}
		if part.Text != "" {
			parts = append(parts, chatContentPart{Type: "text", Text: part.Text})
		}
	}
	return parts
}

func openAIResponseFormat(c schema.Contract, strict bool) any {
	s := c.JSONSchema()
	if s == nil {
		return map[string]string{"type": "json_object"}
	}
	return responseFormat{
		Type: "json_schema",
		JSONSchema: jsonSchemaObject{
			Name:   c.Name,
			Strict: strict,
			Schema: s,
		},
	}
}

// openAIMessageText accepts both string content and the array-of-parts form
// some compatible servers return.
func openAIMessageText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: empty message content", ErrUnparseableOutput)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("openai: unexpected message content: %w", err)
	}
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
