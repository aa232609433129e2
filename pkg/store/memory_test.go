package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestro-ai/maestro/pkg/models"
)

func TestMemoryConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConversationStore()

	conv, err := s.Create(ctx, "research session")
	require.NoError(t, err)
	require.NotEmpty(t, conv.ID)

	// An empty conversation is retrievable immediately after creation.
	got, err := s.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Empty(t, got.Messages)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryAppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConversationStore()
	conv, err := s.Create(ctx, "")
	require.NoError(t, err)

	base := time.Now().UTC()
	for i := range 5 {
		_, err := s.AppendMessage(ctx, conv.ID, models.Message{
			Role:      models.RoleUser,
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	got, err := s.Get(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 5)
	for i, m := range got.Messages {
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
	}

	// Appending to a missing conversation fails.
	_, err = s.AppendMessage(ctx, "missing", models.Message{Content: "x"})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryListOrderedByUpdatedAtDesc(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConversationStore()

	c1, _ := s.Create(ctx, "first")
	c2, _ := s.Create(ctx, "second")
	c3, _ := s.Create(ctx, "third")

	now := time.Now().UTC()
	_, err := s.AppendMessage(ctx, c1.ID, models.Message{Content: "bump", CreatedAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, c2.ID, models.Message{Content: "bump", CreatedAt: now.Add(30 * time.Minute)})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, c1.ID, list[0].ID)
	assert.Equal(t, c2.ID, list[1].ID)
	assert.Equal(t, c3.ID, list[2].ID)
	assert.Equal(t, 1, list[0].MessageCount)

	// Order is non-increasing in UpdatedAt.
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].UpdatedAt.After(list[i-1].UpdatedAt))
	}
}

func TestMemoryRecentMessagesWindow(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConversationStore()
	conv, _ := s.Create(ctx, "")

	base := time.Now().UTC()
	for i := range 15 {
		_, err := s.AppendMessage(ctx, conv.ID, models.Message{
			Content:   fmt.Sprintf("m%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	recent, err := s.RecentMessages(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.Equal(t, "m5", recent[0].Content)
	assert.Equal(t, "m14", recent[9].Content)
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryConversationStore()
	conv, _ := s.Create(ctx, "")
	_, err := s.AppendMessage(ctx, conv.ID, models.Message{Content: "original"})
	require.NoError(t, err)

	got, _ := s.Get(ctx, conv.ID)
	got.Messages[0].Content = "mutated"

	again, _ := s.Get(ctx, conv.ID)
	assert.Equal(t, "original", again.Messages[0].Content)
}

func TestMemoryHistorySink(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryHistorySink()

	base := time.Now().UTC()
	for i := range 3 {
		require.NoError(t, s.Append(ctx, models.RunRecord{
			RunID:       fmt.Sprintf("run-%d", i),
			Status:      models.RunSucceeded,
			CompletedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "run-2", list[0].RunID)
	assert.Equal(t, "run-1", list[1].RunID)
}
