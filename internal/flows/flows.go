// internal/flows/flows.go

// Package flows runs the two schema-contracted extraction flows: photo to
// identified ingredients, and ingredient list to nutrition facts.
//
// Each call renders one prompt, makes exactly one model call and validates
// the answer. Nothing is retried, clamped or defaulted: every failure reaches
// the caller as an *InvalidInputError, *ModelInvocationError or
// *SchemaValidationError.
package flows

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mcp-nutrisnap/internal/models"
	"mcp-nutrisnap/internal/prompt"
	"mcp-nutrisnap/internal/schema"
)

// Flows holds the injected model client. It has no other state and is safe
// for concurrent use when the client is.
type Flows struct {
	client ModelClient
}

func New(client ModelClient) *Flows {
	return &Flows{client: client}
}

// IdentifyIngredients asks the model which ingredients appear in the photo.
// The result may hold zero ingredients.
func (f *Flows) IdentifyIngredients(ctx context.Context, in models.IdentifyIngredientsInput) (*models.IdentifyIngredientsOutput, error) {
	out, err := run[models.IdentifyIngredientsOutput](ctx, f, &definition{
		name:   FlowIdentifyIngredients,
		input:  IdentifyIngredientsInputContract,
		output: IdentifyIngredientsOutputContract,
		check: func() error {
			if err := CheckPhotoReference(in.PhotoURL); err != nil {
				return &InvalidInputError{Flow: FlowIdentifyIngredients, Field: "photoUrl", Reason: err.Error(), Err: err}
			}
			return nil
		},
		render: func() (*prompt.Prompt, error) {
			return RenderIdentifyIngredientsPrompt(in)
		},
	}, in)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EstimateNutritionalValue asks the model for one nutrition estimate per
// ingredient. An empty ingredient list fails without calling the model.
// Output order and names are requested in the prompt but not enforced here;
// see CompareEstimates.
func (f *Flows) EstimateNutritionalValue(ctx context.Context, in models.EstimateNutritionalValueInput) (*models.EstimateNutritionalValueOutput, error) {
	out, err := run[models.EstimateNutritionalValueOutput](ctx, f, &definition{
		name:   FlowEstimateNutritionalValue,
		input:  EstimateNutritionalValueInputContract,
		output: EstimateNutritionalValueOutputContract,
		render: func() (*prompt.Prompt, error) {
			return RenderEstimateNutritionalValuePrompt(in)
		},
	}, in)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type definition struct {
	name   string
	input  schema.Contract
	output schema.Contract
	// check runs after the input contract, for rules a contract cannot express.
	check  func() error
	render func() (*prompt.Prompt, error)
}

func run[Out any](ctx context.Context, f *Flows, def *definition, in any) (Out, error) {
	var zero Out

	if err := checkInput(def, in); err != nil {
		return zero, err
	}
	if def.check != nil {
		if err := def.check(); err != nil {
			return zero, err
		}
	}

	p, err := def.render()
	if err != nil {
		return zero, &InvalidInputError{Flow: def.name, Reason: err.Error(), Err: err}
	}

	if f == nil || f.client == nil {
		return zero, &ModelInvocationError{Flow: def.name, Err: errors.New("no model client configured")}
	}

	raw, err := f.client.Generate(ctx, &ModelRequest{Flow: def.name, Prompt: p, Output: def.output})
	if err != nil {
		var invocation *ModelInvocationError
		if errors.As(err, &invocation) {
			return zero, err
		}
		return zero, &ModelInvocationError{Flow: def.name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		// The call was abandoned while in flight; its answer is discarded.
		return zero, &ModelInvocationError{Flow: def.name, Err: err}
	}

	out, err := schema.Decode[Out](def.output, raw)
	if err != nil {
		if _, ok := schema.AsValidationError(err); ok {
			return zero, err
		}
		return zero, &ModelInvocationError{Flow: def.name, Err: err}
	}
	return out, nil
}

// checkInput runs the typed input through the same validation layer the
// model output goes through.
func checkInput(def *definition, in any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return &InvalidInputError{Flow: def.name, Reason: fmt.Sprintf("encode input: %v", err), Err: err}
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return &InvalidInputError{Flow: def.name, Reason: fmt.Sprintf("decode input: %v", err), Err: err}
	}

	if _, err := def.input.Validate(tree); err != nil {
		verr, ok := schema.AsValidationError(err)
		if !ok {
			return &InvalidInputError{Flow: def.name, Reason: err.Error(), Err: err}
		}
		return &InvalidInputError{Flow: def.name, Field: verr.Field, Reason: verr.Constraint, Err: err}
	}
	return nil
}
