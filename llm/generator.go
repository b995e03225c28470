// Package llm defines the contract for the text-generation collaborator.
// The backend itself (model, quantization, serving) is a black box; this
// package only fixes the boundary the orchestrator depends on.
package llm

import "context"

// Generator is the generation backend boundary.
type Generator interface {
	// Generate produces text for a fully assembled prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// TokenCount measures the backend tokens a text would consume.
	TokenCount(text string) int

	// ContextWindowSize is the fixed maximum number of input tokens the
	// backend accepts.
	ContextWindowSize() int
}
