package llm

import (
	"context"

	"github.com/creastat/dialog"
)

// DefaultMockWindow matches the n_ctx of the llama backend this service
// was first deployed against.
const DefaultMockWindow = 2048

// Mock is a Generator for tests and local runs without a real backend.
type Mock struct {
	// Reply is returned verbatim from Generate. Empty means a fixed canned
	// answer.
	Reply string

	// Window overrides the reported context window size.
	Window int

	// Err, when set, is returned from Generate.
	Err error

	// Block, when set, makes Generate wait for context cancellation,
	// simulating a slow backend.
	Block bool
}

// Generate implements Generator.
func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if m.Block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	return "this is a mock answer", nil
}

// TokenCount implements Generator using the shared heuristic estimator.
func (m *Mock) TokenCount(text string) int {
	return dialog.EstimateTokens(text)
}

// ContextWindowSize implements Generator.
func (m *Mock) ContextWindowSize() int {
	if m.Window > 0 {
		return m.Window
	}
	return DefaultMockWindow
}

var _ Generator = (*Mock)(nil)
