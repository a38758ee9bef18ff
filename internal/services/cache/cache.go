// Package cache stores chat conversation history. A Redis-backed store is
// used when configured; the in-memory LRU store is the fallback so the
// server runs without external infrastructure.
package cache

import (
	"container/list"
	"context"
	"sync"

	"sage-engine/internal/models"
)

// ConversationStore persists per-conversation message history.
type ConversationStore interface {
	History(ctx context.Context, conversationID string) ([]models.ChatMessage, error)
	Append(ctx context.Context, conversationID string, messages ...models.ChatMessage) error
}

// DefaultMaxConversations bounds the in-memory store.
const DefaultMaxConversations = 1000

// LRUStore is a bounded in-memory conversation store. When the capacity is
// exceeded, the least recently used conversation is evicted.
type LRUStore struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type lruEntry struct {
	conversationID string
	messages       []models.ChatMessage
}

// NewLRUStore creates an in-memory store holding at most capacity
// conversations. Non-positive capacity uses the default.
func NewLRUStore(capacity int) *LRUStore {
	if capacity <= 0 {
		capacity = DefaultMaxConversations
	}
	return &LRUStore{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// History returns a copy of the conversation's messages and marks it
// recently used. An unknown conversation yields an empty history.
func (s *LRUStore) History(_ context.Context, conversationID string) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	element, ok := s.entries[conversationID]
	if !ok {
		return nil, nil
	}
	s.order.MoveToFront(element)

	entry := element.Value.(*lruEntry)
	history := make([]models.ChatMessage, len(entry.messages))
	copy(history, entry.messages)
	return history, nil
}

// Append adds messages to the conversation, creating it if needed and
// evicting the least recently used conversation when over capacity.
func (s *LRUStore) Append(_ context.Context, conversationID string, messages ...models.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if element, ok := s.entries[conversationID]; ok {
		s.order.MoveToFront(element)
		entry := element.Value.(*lruEntry)
		entry.messages = append(entry.messages, messages...)
		return nil
	}

	entry := &lruEntry{conversationID: conversationID, messages: messages}
	s.entries[conversationID] = s.order.PushFront(entry)

	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.entries, oldest.Value.(*lruEntry).conversationID)
	}
	return nil
}

// Len returns the number of stored conversations.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
