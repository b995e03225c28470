// Package retrieval defines the contract for the retrieval collaborator:
// given a query string, return a ranked sequence of supporting passages.
package retrieval

import "context"

// Passage is a unit of retrieved text considered for inclusion in a prompt.
// Order is significant: consumers preserve the order the retriever produced
// and never re-rank.
type Passage struct {
	// Text is the passage content.
	Text string

	// Score is the relevance score assigned by the backend (higher is more
	// relevant).
	Score float32

	// SourceID identifies the source collection this passage came from.
	SourceID string
}

// Retriever is a technology-agnostic interface for context retrieval.
// Implementations can use Qdrant, Pinecone, Weaviate, or a fixed corpus.
type Retriever interface {
	// Retrieve returns at most limit passages relevant to the query,
	// most relevant first.
	Retrieve(ctx context.Context, query string, limit int) ([]Passage, error)
}

// Embedder converts a query string into the vector a vector-search backend
// needs. How embeddings are computed is a collaborator concern; this package
// only consumes them.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
