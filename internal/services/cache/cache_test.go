package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sage-engine/internal/models"
)

func userMessage(content string) models.ChatMessage {
	return models.ChatMessage{Role: "user", Content: content}
}

func TestLRUStore_AppendAndHistory(t *testing.T) {
	store := NewLRUStore(10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1", userMessage("hello"), models.ChatMessage{Role: "assistant", Content: "hi"}))
	require.NoError(t, store.Append(ctx, "conv-1", userMessage("another question")))

	history, err := store.History(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "another question", history[2].Content)
}

func TestLRUStore_UnknownConversation(t *testing.T) {
	store := NewLRUStore(10)
	history, err := store.History(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLRUStore_HistoryReturnsCopy(t *testing.T) {
	store := NewLRUStore(10)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "conv-1", userMessage("original")))

	history, err := store.History(ctx, "conv-1")
	require.NoError(t, err)
	history[0].Content = "mutated"

	fresh, err := store.History(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "original", fresh[0].Content)
}

func TestLRUStore_EvictsLeastRecentlyUsed(t *testing.T) {
	store := NewLRUStore(2)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-a", userMessage("a")))
	require.NoError(t, store.Append(ctx, "conv-b", userMessage("b")))

	// Touch conv-a so conv-b is the eviction candidate.
	_, err := store.History(ctx, "conv-a")
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "conv-c", userMessage("c")))
	assert.Equal(t, 2, store.Len())

	evicted, err := store.History(ctx, "conv-b")
	require.NoError(t, err)
	assert.Empty(t, evicted)

	kept, err := store.History(ctx, "conv-a")
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestLRUStore_AppendRefreshesRecency(t *testing.T) {
	store := NewLRUStore(2)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-a", userMessage("a")))
	require.NoError(t, store.Append(ctx, "conv-b", userMessage("b")))
	require.NoError(t, store.Append(ctx, "conv-a", userMessage("a again")))
	require.NoError(t, store.Append(ctx, "conv-c", userMessage("c")))

	history, err := store.History(ctx, "conv-a")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	gone, err := store.History(ctx, "conv-b")
	require.NoError(t, err)
	assert.Empty(t, gone)
}

func TestLRUStore_NonPositiveCapacityUsesDefault(t *testing.T) {
	store := NewLRUStore(0)
	ctx := context.Background()

	for i := 0; i < DefaultMaxConversations+10; i++ {
		require.NoError(t, store.Append(ctx, fmt.Sprintf("conv-%d", i), userMessage("m")))
	}
	assert.Equal(t, DefaultMaxConversations, store.Len())
}
