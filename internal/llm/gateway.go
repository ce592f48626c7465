// internal/llm/gateway.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mcp-nutrisnap/internal/flows"
)

const (
	defaultProxyURL     = "http://mcp-compose-http-proxy:9876"
	defaultGatewayModel = "anthropic/claude-3.5-sonnet"
	gatewayPath         = "/openrouter-gateway"
	gatewayTool         = "create_completion"
)

// GatewayClient sends completions through the MCP compose proxy: a JSON-RPC
// tools/call of the openrouter-gateway create_completion tool.
type GatewayClient struct {
	settings
}

var _ flows.ModelClient = (*GatewayClient)(nil)

func NewGatewayClient(model string, opts ...Option) *GatewayClient {
	if model == "" {
		model = defaultGatewayModel
	}
	return &GatewayClient{settings: newSettings(model, defaultProxyURL, opts)}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      int       `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

type completionArguments struct {
	Model        string        `json:"model"`
	SystemPrompt string        `json:"system_prompt"`
	Messages     []chatMessage `json:"messages"`
	MaxTokens    int           `json:"max_tokens,omitempty"`
	Temperature  *float64      `json:"temperature,omitempty"`
}

type rpcResponse struct {
	Result *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GatewayClient) Generate(ctx context.Context, req *flows.ModelRequest) (any, error) {
	if req == nil || req.Prompt == nil {
		return nil, errors.New("gateway: request has no prompt")
	}

	var content any = req.Prompt.Text()
	if len(req.Prompt.Media()) > 0 {
		content = openAIContent(req.Prompt)
	}

	args := completionArguments{
		Model:        c.model,
		SystemPrompt: jsonOnlyInstruction,
		Messages:     []chatMessage{{Role: "user", Content: content}},
		MaxTokens:    c.maxTokens,
		Temperature:  c.temperature,
	}

	text, err := c.callGateway(ctx, gatewayTool, args)
	if err != nil {
		return nil, err
	}
	return DecodeStructured(completionContent(text))
}

func (c *GatewayClient) callGateway(ctx context.Context, toolName string, args any) (string, error) {
	requestData := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  rpcParams{Name: toolName, Arguments: args},
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	var resp rpcResponse
	if err := postJSON(ctx, c.httpClient, "gateway", c.baseURL+gatewayPath, headers, requestData, &resp); err != nil {
		return "", err
	}

	if resp.Error != nil {
		return "", fmt.Errorf("gateway: %s failed: %s (code %d)", toolName, resp.Error.Message, resp.Error.Code)
	}
	if resp.Result == nil || len(resp.Result.Content) == 0 {
		return "", errors.New("gateway: unexpected response format")
	}
	if resp.Result.IsError {
		return "", fmt.Errorf("gateway: %s failed: %s", toolName, resp.Result.Content[0].Text)
	}
	return resp.Result.Content[0].Text, nil
}

// completionContent unwraps the {"content": "..."} envelope the gateway tool
// answers with. Text without the envelope is returned unchanged.
func completionContent(text string) string {
	var envelope struct {
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil || envelope.Content == nil {
		return text
	}
	return *envelope.Content
}
