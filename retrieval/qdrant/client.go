// Package qdrant implements retrieval.Retriever against a Qdrant
// collection, composing an injected embedder with vector similarity search.
package qdrant

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/creastat/dialog/retrieval"
)

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g. "https://example.qdrant.io:6334").
	URL string

	// CollectionName is the name of the collection to search.
	CollectionName string

	// APIKey is an optional API key for authentication.
	APIKey string

	// MinScore drops results below this similarity threshold. Zero keeps
	// everything the backend returns.
	MinScore float32
}

// Client implements retrieval.Retriever for Qdrant.
type Client struct {
	client         *qdrant.Client
	collectionName string
	minScore       float32
	embedder       retrieval.Embedder
}

// New creates a new Qdrant retriever.
func New(cfg Config, embedder retrieval.Embedder) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}

	parsedURL := cfg.URL
	if !strings.HasPrefix(parsedURL, "http://") && !strings.HasPrefix(parsedURL, "https://") {
		parsedURL = "https://" + parsedURL
	}

	u, err := url.Parse(parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}

	host := u.Hostname()
	port := 6334 // default gRPC port
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{
		client:         qdrantClient,
		collectionName: cfg.CollectionName,
		minScore:       cfg.MinScore,
		embedder:       embedder,
	}, nil
}

// Retrieve implements retrieval.Retriever. The order Qdrant returns is
// preserved.
func (c *Client) Retrieve(ctx context.Context, query string, limit int) ([]retrieval.Passage, error) {
	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	limitUint64 := uint64(limit)
	points, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	passages := make([]retrieval.Passage, 0, len(points))
	for _, point := range points {
		if c.minScore > 0 && point.Score < c.minScore {
			continue
		}

		passage := retrieval.Passage{Score: point.Score}
		if point.Payload != nil {
			for k, v := range point.Payload {
				switch k {
				case "content":
					if str := v.GetStringValue(); str != "" {
						passage.Text = str
					}
				case "source_id":
					if str := v.GetStringValue(); str != "" {
						passage.SourceID = str
					}
				}
			}
		}
		if passage.Text == "" {
			continue
		}

		passages = append(passages, passage)
	}

	return passages, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Compile-time check that Client implements Retriever.
var _ retrieval.Retriever = (*Client)(nil)
