// internal/llm/extract.go

// Package llm holds the model clients behind flows.ModelClient: an
// OpenAI-compatible chat completions client, a Gemini client and the MCP
// proxy gateway client.
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnparseableOutput is returned when model text holds no JSON value.
var ErrUnparseableOutput = errors.New("model output is not structured data")

// DecodeStructured parses model text into an untyped JSON value. Models often
// wrap JSON in markdown fences or prose, so after a direct parse fails it
// tries the fenced block, then the first JSON object embedded in the text.
func DecodeStructured(text string) (any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnparseableOutput)
	}

	for _, candidate := range []string{trimmed, fencedBlock(trimmed)} {
		if candidate == "" {
			continue
		}
		var out any
		if err := json.Unmarshal([]byte(candidate), &out); err == nil {
			return out, nil
		}
	}
	if out, ok := firstObject(trimmed); ok {
		return out, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnparseableOutput, preview(trimmed))
}

func fencedBlock(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return ""
	}
	rest := text[start+3:]
	// Drop the info string ("json") on the opening fence.
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	}
	end := strings.Index(rest, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// firstObject decodes the first complete JSON object in text. Whatever
// follows it, braces included, is ignored.
func firstObject(text string) (any, bool) {
	for offset := 0; ; {
		start := strings.IndexByte(text[offset:], '{')
		if start == -1 {
			return nil, false
		}
		offset += start

		var out map[string]any
		if err := json.NewDecoder(strings.NewReader(text[offset:])).Decode(&out); err == nil {
			return out, true
		}
		offset++
	}
}

func preview(text string) string {
	const limit = 120
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "..."
}
