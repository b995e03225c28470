package retrieval

import "context"

// Static is a Retriever over a fixed, pre-ranked passage list. It backs
// local runs without a vector backend and tests that need deterministic
// retrieval.
type Static struct {
	Passages []Passage
}

// Retrieve implements Retriever.
func (s *Static) Retrieve(ctx context.Context, query string, limit int) ([]Passage, error) {
	if limit <= 0 || limit > len(s.Passages) {
		limit = len(s.Passages)
	}
	out := make([]Passage, limit)
	copy(out, s.Passages[:limit])
	return out, nil
}
