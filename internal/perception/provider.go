// Package perception provides the model-provider capability: a single
// Generate operation that sends one prompt to a language model and returns
// text plus a token count. The pipeline never talks to a model any other
// way; timeouts, retries, and concurrency limits all live above this layer.
package perception

import (
	"context"
	"fmt"
)

// Request is one outbound generation call.
type Request struct {
	Prompt      string
	System      string   // optional system instruction
	Temperature float64  // 0..1
	MaxTokens   int      // 0 means provider default
	JSONSchema  *Schema  // optional structured-response schema
}

// Response is a completed generation.
type Response struct {
	Text   string
	Tokens int // total tokens consumed, 0 if the provider does not report it
}

// Schema is a minimal JSON-schema subset understood by providers that
// support constrained output. Providers without native schema support
// append a textual instruction instead.
type Schema struct {
	Type       string             `json:"type"` // "object" or "array"
	Items      *Schema            `json:"items,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// Provider is the model capability the workflow consumes.
// Implementations must honor ctx cancellation; they may block on I/O.
type Provider interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// PermanentError marks a non-retryable provider failure (4xx, schema
// rejection, empty completion). Everything else is treated as transient.
type PermanentError struct {
	Provider string
	Reason   string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: permanent provider error: %s", e.Provider, e.Reason)
}

// ArraySchema builds a schema for a JSON array of objects with the given
// string properties, all required.
func ArraySchema(props ...string) *Schema {
	obj := &Schema{Type: "object", Properties: map[string]*Schema{}, Required: props}
	for _, p := range props {
		obj.Properties[p] = &Schema{Type: "string"}
	}
	return &Schema{Type: "array", Items: obj}
}
