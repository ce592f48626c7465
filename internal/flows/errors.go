// internal/flows/errors.go
package flows

import (
	"errors"
	"fmt"

	"mcp-nutrisnap/internal/schema"
)

// Error kinds as reported to callers.
const (
	KindInvalidInput     = "invalid_input"
	KindModelInvocation  = "model_invocation"
	KindSchemaValidation = "schema_validation"
)

// InvalidInputError means the caller's input broke the input contract. It is
// detected before the model client is called.
type InvalidInputError struct {
	Flow   string
	Field  string
	Reason string
	Err    error
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: invalid input: %s", e.Flow, e.Reason)
	}
	return fmt.Sprintf("%s: invalid input %s: %s", e.Flow, e.Field, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// ModelInvocationError means the model client produced no usable structured
// value: transport failure, provider error, cancellation or unparseable text.
type ModelInvocationError struct {
	Flow string
	Err  error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("%s: model invocation failed: %v", e.Flow, e.Err)
}

func (e *ModelInvocationError) Unwrap() error {
	return e.Err
}

// SchemaValidationError means the model answered with parseable data that
// broke the output contract.
type SchemaValidationError = schema.ValidationError

// Kind classifies err into one of the Kind constants, or "" for anything
// else.
func Kind(err error) string {
	var invalid *InvalidInputError
	var invocation *ModelInvocationError
	var validation *SchemaValidationError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return KindInvalidInput
	case errors.As(err, &invocation):
		return KindModelInvocation
	case errors.As(err, &validation):
		return KindSchemaValidation
	}
	return ""
}
