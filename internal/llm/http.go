// internal/llm/http.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	// Bodies of failed responses are cut to this many bytes in errors.
	errorBodyLimit = 2048
)

// jsonOnlyInstruction is sent as the system message on every call.
const jsonOnlyInstruction = "You are a structured data extractor. Always respond with valid JSON only, without markdown or commentary."

// StatusError is a non-200 reply from a model provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether asking again may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type settings struct {
	apiKey      string
	model       string
	baseURL     string
	temperature *float64
	maxTokens   int
	strict      bool
	httpClient  *http.Client
}

type Option func(*settings)

func WithAPIKey(apiKey string) Option {
	return func(s *settings) {
		if strings.TrimSpace(apiKey) != "" {
			s.apiKey = strings.TrimSpace(apiKey)
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		if strings.TrimSpace(baseURL) != "" {
			s.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithTimeout sets the HTTP client timeout. Zero or negative keeps the
// current one.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout <= 0 {
			return
		}
		if s.httpClient == nil {
			s.httpClient = &http.Client{}
		}
		s.httpClient.Timeout = timeout
	}
}

func WithTemperature(temperature float64) Option {
	return func(s *settings) {
		s.temperature = &temperature
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(s *settings) {
		if maxTokens > 0 {
			s.maxTokens = maxTokens
		}
	}
}

// WithStrictSchema asks providers that support it to enforce the output
// schema strictly.
func WithStrictSchema(strict bool) Option {
	return func(s *settings) {
		s.strict = strict
	}
}

func newSettings(model, baseURL string, opts []Option) settings {
	s := settings{
		model:      strings.TrimSpace(model),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// postJSON sends body as JSON and decodes a 200 reply into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("%s: failed to create HTTP request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: HTTP request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(bodyBytes))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", provider, err)
	}
	return nil
}
