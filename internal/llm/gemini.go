// internal/llm/gemini.go
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"mcp-nutrisnap/internal/flows"
	"mcp-nutrisnap/internal/models"
	"mcp-nutrisnap/internal/prompt"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/"
	defaultGeminiModel   = "gemini-2.5-flash"
	// Remote photos larger than this are refused rather than inlined.
	maxPhotoBytes = 10 << 20
)

// GeminiClient calls generateContent through the genai SDK. Gemini only takes
// inline image bytes, so http(s) photo references are downloaded first.
type GeminiClient struct {
	settings
}

var _ flows.ModelClient = (*GeminiClient)(nil)

func NewGeminiClient(model string, opts ...Option) *GeminiClient {
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{settings: newSettings(model, defaultGeminiBaseURL, opts)}
}

func (c *GeminiClient) Generate(ctx context.Context, req *flows.ModelRequest) (any, error) {
	if c.apiKey == "" {
		return nil, errors.New("gemini: API key is required (set GEMINI_API_KEY)")
	}
	if req == nil || req.Prompt == nil {
		return nil, errors.New("gemini: request has no prompt")
	}

	parts, err := c.parts(ctx, req.Prompt)
	if err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  c.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: jsonOnlyInstruction}}},
		ResponseMIMEType:  "application/json",
		MaxOutputTokens:   int32(c.maxTokens),
	}
	if schema := req.Output.JSONSchema(); schema != nil {
		config.ResponseJsonSchema = schema
	}
	if c.temperature != nil {
		t := float32(*c.temperature)
		config.Temperature = &t
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}
	resp, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("gemini: empty response")
	}
	return DecodeStructured(resp.Text())
}

func (c *GeminiClient) parts(ctx context.Context, p *prompt.Prompt) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(p.Parts))
	for _, part := range p.Parts {
		if part.Media == nil {
			if part.Text != "" {
				out = append(out, &genai.Part{Text: part.Text})
			}
			continue
		}
		inline, err := c.inline(ctx, models.PhotoReference(part.Media.URL))
		if err != nil {
			return nil, err
		}
		out = append(out, &genai.Part{InlineData: inline})
	}
	return out, nil
}

func (c *GeminiClient) inline(ctx context.Context, ref models.PhotoReference) (*genai.Blob, error) {
	if flows.IsDataURI(ref) {
		data, err := flows.ParseDataURI(ref)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		imageBytes, err := base64.StdEncoding.DecodeString(data.Data)
		if err != nil {
			return nil, fmt.Errorf("gemini: photo data is not valid base64: %w", err)
		}
		return &genai.Blob{MIMEType: data.MimeType, Data: imageBytes}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, string(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create photo request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: photo download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini: photo download failed with status %d", resp.StatusCode)
	}

	imageBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("gemini: photo read failed: %w", err)
	}
	if len(imageBytes) > maxPhotoBytes {
		return nil, fmt.Errorf("gemini: photo exceeds %d bytes", maxPhotoBytes)
	}

	mimeType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(imageBytes)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("gemini: photo has non-image content type %q", mimeType)
	}
	if i := strings.IndexByte(mimeType, ';'); i != -1 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return &genai.Blob{MIMEType: mimeType, Data: imageBytes}, nil
}
