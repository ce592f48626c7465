package llm

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"mcp-nutrisnap/internal/flows"
)

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	next := flows.ModelClientFunc(func(ctx context.Context, req *flows.ModelRequest) (any, error) {
		return map[string]any{"ingredients": []any{}}, nil
	})
	client := WithLogging(next, logger)

	photo := "data:image/png;base64,AAAA"
	if _, err := client.Generate(context.Background(), identifyRequest(t, "data:image/png;base64,AAAA")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "model call identifyIngredients:") || !strings.Contains(out, "1 media") {
		t.Fatalf("unexpected log output %q", out)
	}
	if !strings.Contains(out, "model call identifyIngredients took") {
		t.Fatalf("missing timing line in %q", out)
	}
	if strings.Contains(out, photo) {
		t.Fatalf("photo payload leaked into log: %q", out)
	}
}

func TestWithLoggingFailure(t *testing.T) {
	var buf bytes.Buffer
	boom := errors.New("boom")

	client := WithLogging(flows.ModelClientFunc(func(ctx context.Context, req *flows.ModelRequest) (any, error) {
		return nil, boom
	}), log.New(&buf, "", 0))

	_, err := client.Generate(context.Background(), identifyRequest(t, "https://example.com/plate.jpg"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error to pass through, got %v", err)
	}
	if !strings.Contains(buf.String(), "failed after") {
		t.Fatalf("missing failure line in %q", buf.String())
	}
}
