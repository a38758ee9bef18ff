// Package vectorstore provides vector storage and retrieval against a
// Pinecone serverless index.
package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when the client is used without credentials.
var ErrNotConfigured = errors.New("PINECONE_API_KEY or PINECONE_HOST not configured")

// Match is a single vector search hit.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata"`
}

// Client talks to a Pinecone serverless index over its REST API.
type Client struct {
	apiKey    string
	host      string
	namespace string
	client    *http.Client
}

// NewClient creates a Pinecone client. Credentials are validated at first
// use so the application can start without them.
func NewClient(apiKey, host, namespace string) *Client {
	return &Client{
		apiKey:    apiKey,
		host:      host,
		namespace: namespace,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

type queryRequest struct {
	Vector          []float64      `json:"vector"`
	TopK            int            `json:"topK"`
	Namespace       string         `json:"namespace,omitempty"`
	Filter          map[string]any `json:"filter,omitempty"`
	IncludeMetadata bool           `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string            `json:"id"`
		Score    float64           `json:"score"`
		Metadata map[string]string `json:"metadata"`
	} `json:"matches"`
}

// EqualityFilter builds a Pinecone metadata equality filter.
func EqualityFilter(field, value string) map[string]any {
	return map[string]any{field: map[string]any{"$eq": value}}
}

// Query searches the index for the topK nearest vectors, optionally
// constrained by a metadata filter.
func (c *Client) Query(ctx context.Context, vector []float64, topK int, filter map[string]any) ([]Match, error) {
	if c.apiKey == "" || c.host == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(queryRequest{
		Vector:          vector,
		TopK:            topK,
		Namespace:       c.namespace,
		Filter:          filter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vector store returned status %d", resp.StatusCode)
	}

	var result queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	matches := make([]Match, len(result.Matches))
	for i, m := range result.Matches {
		matches[i] = Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata}
	}
	return matches, nil
}
