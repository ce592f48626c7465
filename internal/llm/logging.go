// internal/llm/logging.go
package llm

import (
	"context"
	"log"
	"time"

	"mcp-nutrisnap/internal/flows"
)

type loggingClient struct {
	next   flows.ModelClient
	logger *log.Logger
}

// WithLogging wraps next so every call logs its flow, prompt size and
// timing. Prompt media are counted, never logged.
func WithLogging(next flows.ModelClient, logger *log.Logger) flows.ModelClient {
	if logger == nil {
		logger = log.Default()
	}
	return &loggingClient{next: next, logger: logger}
}

func (l *loggingClient) Generate(ctx context.Context, req *flows.ModelRequest) (any, error) {
	if req != nil && req.Prompt != nil {
		l.logger.Printf("model call %s: %d prompt chars, %d media", req.Flow, len(req.Prompt.Text()), len(req.Prompt.Media()))
	}

	t := time.Now()
	raw, err := l.next.Generate(ctx, req)
	elapsed := time.Since(t).Milliseconds()

	flow := ""
	if req != nil {
		flow = req.Flow
	}
	if err != nil {
		l.logger.Printf("model call %s failed after %d ms: %v", flow, elapsed, err)
		return nil, err
	}
	l.logger.Printf("model call %s took %d ms", flow, elapsed)
	return raw, nil
}
