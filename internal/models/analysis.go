// internal/models/analysis.go
package models

import (
	"encoding/json"
	"time"
)

// Analysis is one journaled flow call.
type Analysis struct {
	ID           string          `json:"id"`
	Flow         string          `json:"flow"`
	Input        json.RawMessage `json:"input"`
	Output       json.RawMessage `json:"output,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	DurationMS   int64           `json:"duration_ms"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Succeeded reports whether the flow call produced an output.
func (a *Analysis) Succeeded() bool {
	return a.ErrorKind == "" && len(a.Output) > 0
}
