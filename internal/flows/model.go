// internal/flows/model.go
package flows

import (
	"context"

	"mcp-nutrisnap/internal/prompt"
	"mcp-nutrisnap/internal/schema"
)

// ModelRequest is one outbound call: the rendered prompt and the contract the
// answer must satisfy.
type ModelRequest struct {
	Flow   string
	Prompt *prompt.Prompt
	Output schema.Contract
}

// ModelClient performs inference. Generate returns the answer as an untyped
// structured value (the shapes encoding/json decodes into any). Clients try
// to make the model honor req.Output; the flow validates the answer again.
type ModelClient interface {
	Generate(ctx context.Context, req *ModelRequest) (any, error)
}

// ModelClientFunc adapts a function to ModelClient.
type ModelClientFunc func(ctx context.Context, req *ModelRequest) (any, error)

func (f ModelClientFunc) Generate(ctx context.Context, req *ModelRequest) (any, error) {
	return f(ctx, req)
}
