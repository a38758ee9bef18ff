package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sage-engine/internal/models"
)

// conversationTTL bounds how long idle conversations are kept.
const conversationTTL = 24 * time.Hour

// RedisStore keeps conversation history in a Redis list per conversation.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed conversation store.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func conversationKey(conversationID string) string {
	return "chat:conversation:" + conversationID
}

// History returns the conversation's messages in order.
func (s *RedisStore) History(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	raw, err := s.client.LRange(ctx, conversationKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	messages := make([]models.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var message models.ChatMessage
		if err := json.Unmarshal([]byte(item), &message); err != nil {
			// Skip corrupted entries rather than losing the conversation.
			continue
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// Append pushes messages onto the conversation list and refreshes its TTL.
func (s *RedisStore) Append(ctx context.Context, conversationID string, messages ...models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	key := conversationKey(conversationID)
	encoded := make([]interface{}, 0, len(messages))
	for _, message := range messages {
		data, err := json.Marshal(message)
		if err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
		encoded = append(encoded, data)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, encoded...)
	pipe.Expire(ctx, key, conversationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}
