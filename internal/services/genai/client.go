// Package genai provides a client for the Anthropic Messages API,
// including tool-use conversations.
package genai

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
var ErrNotConfigured = errors.New("ANTHROPIC_API_KEY not configured")

const (
	defaultAPIURL    = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 2048
)

// Tool describes one tool in the schema offered to the model.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ContentBlock is one block of a message: either free text or a tool
// invocation request ("tool_use"), or a tool result fed back in.
type ContentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

// Message is one turn of the conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a message with a single text block.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Type: "text", Text: text}}}
}

// Usage carries the token counts reported by the API.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Request is a single Messages API call.
type Request struct {
	System    string
	Tools     []Tool
	Messages  []Message
	MaxTokens int
}

// Response is the parsed API reply.
type Response struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Text returns the concatenated text blocks of the response.
func (r *Response) Text() string {
	var text string
	for _, block := range r.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text
}

// ToolUses returns the tool invocation requests in the response, in order.
func (r *Response) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, block := range r.Content {
		if block.Type == "tool_use" {
			uses = append(uses, block)
		}
	}
	return uses
}

// Client calls the Anthropic Messages API. Stateless per call; safe for
// concurrent use.
type Client struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

// NewClient creates a generative reasoning client. The key is validated at
// first use; callers without a key fall back to the deterministic path.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey: apiKey,
		apiURL: defaultAPIURL,
		model:  model,
		// Per-call deadlines come from the caller's context; this is a
		// backstop against a hung connection.
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// NewClientWithURL creates a client against a custom endpoint (tests).
func NewClientWithURL(apiKey, model, apiURL string) *Client {
	c := NewClient(apiKey, model)
	c.apiURL = apiURL
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

type apiRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Tools     []Tool    `json:"tools,omitempty"`
	Messages  []Message `json:"messages"`
}

// CreateMessage sends one conversation turn and returns the reply. The
// context deadline bounds the call.
func (c *Client) CreateMessage(ctx context.Context, req Request) (*Response, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(apiRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Tools:     req.Tools,
		Messages:  req.Messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)
	httpReq.Header.Set("Anthropic-Version", anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messages API returned status %d", resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
