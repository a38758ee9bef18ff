// Package embedding provides text embedding generation via the OpenAI API.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when the client is used without an API key.
var ErrNotConfigured = errors.New("OPENAI_API_KEY not configured")

const defaultAPIURL = "https://api.openai.com/v1/embeddings"

// Client generates text embeddings using the OpenAI embeddings API.
type Client struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

// NewClient creates an embedding client. The key is validated at first use,
// not at construction, so callers can fall back to a non-AI path.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey: apiKey,
		apiURL: defaultAPIURL,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithURL creates a client against a custom endpoint (tests).
func NewClientWithURL(apiKey, model, apiURL string) *Client {
	c := NewClient(apiKey, model)
	c.apiURL = apiURL
	return c
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// EmbedText generates an embedding for a single text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float64, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedTexts generates embeddings for multiple texts, batching requests.
// The API accepts large batches; 100 keeps request bodies small.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if len(texts) == 0 {
		return nil, nil
	}

	const batchSize = 100
	all := make([][]float64, 0, len(texts))

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}

	return all, nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API returned status %d", resp.StatusCode)
	}

	var result embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	vectors := make([][]float64, len(result.Data))
	for i, d := range result.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
