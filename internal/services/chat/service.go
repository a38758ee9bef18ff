// Package chat answers guideline questions over the retrieved GSE guide
// corpus, keeping per-conversation history in the conversation store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sage-engine/internal/models"
	"sage-engine/internal/services/cache"
	"sage-engine/internal/services/genai"
	"sage-engine/internal/services/retrieval"
)

// MaxMessageLength bounds a single chat message.
const MaxMessageLength = 10000

const (
	chatTopK       = 5
	historyWindow  = 6 // last 3 exchanges
	snippetPreview = 200
)

// ErrEmptyMessage rejects blank input.
var ErrEmptyMessage = errors.New("message cannot be empty")

// ErrMessageTooLong rejects oversized input.
var ErrMessageTooLong = fmt.Errorf("message too long, maximum length is %d characters", MaxMessageLength)

const systemPrompt = `You are SAGE, a mortgage policy expert assistant that helps users understand Fannie Mae and Freddie Mac guidelines, particularly for HomeReady and Home Possible affordable lending products.

Your responses should be:
1. Accurate and based on the provided context
2. Clear and professional
3. Include specific citations to the source documents using [1], [2], etc.

When comparing products, highlight key differences in eligibility requirements, income limits, DTI ratios, and LTV limits.

If the context doesn't contain enough information to fully answer the question, acknowledge what you know from the context and indicate what additional information might be helpful.

Always cite your sources using the bracketed numbers that correspond to the context sections provided.`

const noContextReply = "I couldn't find specific information about that in the mortgage guidelines. " +
	"Could you rephrase your question or ask about HomeReady (Fannie Mae) or " +
	"Home Possible (Freddie Mac) eligibility requirements?"

// LLMClient is the generative collaborator.
type LLMClient interface {
	CreateMessage(ctx context.Context, req genai.Request) (*genai.Response, error)
}

// GuideSearcher retrieves guide excerpts for a query.
type GuideSearcher interface {
	Search(ctx context.Context, query string, gse models.GSE, topK int) ([]retrieval.Retrieval, error)
}

// Service answers guideline questions with retrieval-augmented generation.
type Service struct {
	llm    LLMClient
	guides GuideSearcher
	store  cache.ConversationStore
}

// NewService creates a chat service over the given collaborators.
func NewService(llm LLMClient, guides GuideSearcher, store cache.ConversationStore) *Service {
	return &Service{llm: llm, guides: guides, store: store}
}

// Chat processes one user message: retrieves guide context, generates a
// cited answer, and records both turns in the conversation store.
func (s *Service) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if len(req.Message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	retrievals, err := s.guides.Search(ctx, req.Message, detectGSE(req.Message), chatTopK)
	if err != nil {
		return nil, fmt.Errorf("guide retrieval failed: %w", err)
	}

	var content string
	var citations []models.Citation

	if len(retrievals) == 0 {
		content = noContextReply
	} else {
		content, citations, err = s.generate(ctx, req.Message, retrievals, conversationID)
		if err != nil {
			return nil, err
		}
	}

	userMessage := models.ChatMessage{Role: "user", Content: req.Message}
	assistantMessage := models.ChatMessage{Role: "assistant", Content: content, Citations: citations}
	if err := s.store.Append(ctx, conversationID, userMessage, assistantMessage); err != nil {
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}

	return &models.ChatResponse{
		Message:        assistantMessage,
		ConversationID: conversationID,
	}, nil
}

// detectGSE narrows retrieval to one GSE when the question names it.
func detectGSE(message string) models.GSE {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "fannie") || strings.Contains(lower, "homeready"):
		return models.GSEFannieMae
	case strings.Contains(lower, "freddie") || strings.Contains(lower, "home possible"):
		return models.GSEFreddieMac
	default:
		return ""
	}
}

func (s *Service) generate(
	ctx context.Context,
	query string,
	retrievals []retrieval.Retrieval,
	conversationID string,
) (string, []models.Citation, error) {
	var contextParts []string
	for i, r := range retrievals {
		contextParts = append(contextParts, fmt.Sprintf(
			"[%d] Source: %s\nSection: %s\n%s\n",
			i+1, gseLabel(r.GSE), r.SectionID, r.Snippet,
		))
	}

	history, err := s.store.History(ctx, conversationID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	var messages []genai.Message
	for _, msg := range history {
		messages = append(messages, genai.TextMessage(msg.Role, msg.Content))
	}

	userMessage := fmt.Sprintf(`Based on the following context from mortgage guidelines, please answer my question.

CONTEXT:
%s

QUESTION: %s

Please provide a clear, accurate answer with citations to the relevant source sections.`,
		strings.Join(contextParts, "\n---\n"), query)
	messages = append(messages, genai.TextMessage("user", userMessage))

	response, err := s.llm.CreateMessage(ctx, genai.Request{
		System:   systemPrompt,
		Messages: messages,
	})
	if err != nil {
		return "", nil, fmt.Errorf("chat generation failed: %w", err)
	}

	text := response.Text()
	return text, extractCitations(text, retrievals), nil
}

var citationRefPattern = regexp.MustCompile(`\[(\d+)\]`)

// extractCitations resolves the bracketed references in the answer back to
// the retrieved sources, deduplicated in first-reference order.
func extractCitations(text string, retrievals []retrieval.Retrieval) []models.Citation {
	var citations []models.Citation
	seen := make(map[string]bool)

	for _, match := range citationRefPattern.FindAllStringSubmatch(text, -1) {
		ref, err := strconv.Atoi(match[1])
		if err != nil || ref < 1 || ref > len(retrievals) {
			continue
		}
		r := retrievals[ref-1]

		key := string(r.GSE) + ":" + r.SectionID
		if seen[key] {
			continue
		}
		seen[key] = true

		snippet := r.Snippet
		if len(snippet) > snippetPreview {
			snippet = snippet[:snippetPreview]
		}
		citations = append(citations, models.Citation{
			Text:   snippet,
			Source: fmt.Sprintf("%s - %s", gseLabel(r.GSE), r.SectionID),
			URL:    r.SourceURL,
		})
	}

	return citations
}

func gseLabel(gse models.GSE) string {
	switch gse {
	case models.GSEFannieMae:
		return "Fannie Mae"
	case models.GSEFreddieMac:
		return "Freddie Mac"
	default:
		return "GSE Guide"
	}
}
