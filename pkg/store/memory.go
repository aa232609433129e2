package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maestro-ai/maestro/pkg/models"
)

// MemoryConversationStore is the in-memory ConversationStore used by tests
// and dev mode. Semantics mirror the Postgres implementation.
type MemoryConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
}

// NewMemoryConversationStore creates an empty store.
func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{conversations: make(map[string]*models.Conversation)}
}

// Create implements ConversationStore.
func (s *MemoryConversationStore) Create(_ context.Context, title string) (models.Conversation, error) {
	now := time.Now().UTC()
	conv := models.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	s.conversations[conv.ID] = &conv
	s.mu.Unlock()
	return copyConversation(&conv), nil
}

// Get implements ConversationStore.
func (s *MemoryConversationStore) Get(_ context.Context, id string) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	if !ok {
		return models.Conversation{}, models.ErrNotFound
	}
	return copyConversation(conv), nil
}

// List implements ConversationStore.
func (s *MemoryConversationStore) List(_ context.Context) ([]models.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, models.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: len(conv.Messages),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// AppendMessage implements ConversationStore.
func (s *MemoryConversationStore) AppendMessage(_ context.Context, conversationID string, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return models.Message{}, models.ErrNotFound
	}
	conv.Messages = append(conv.Messages, msg)
	conv.UpdatedAt = msg.CreatedAt
	return msg, nil
}

// RecentMessages implements ConversationStore.
func (s *MemoryConversationStore) RecentMessages(_ context.Context, conversationID string, n int) ([]models.Message, error) {
	if n <= 0 {
		n = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, models.ErrNotFound
	}
	msgs := conv.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func copyConversation(conv *models.Conversation) models.Conversation {
	out := *conv
	out.Messages = make([]models.Message, len(conv.Messages))
	copy(out.Messages, conv.Messages)
	return out
}

// MemoryHistorySink is the in-memory HistorySink.
type MemoryHistorySink struct {
	mu      sync.RWMutex
	records []models.RunRecord
}

// NewMemoryHistorySink creates an empty sink.
func NewMemoryHistorySink() *MemoryHistorySink {
	return &MemoryHistorySink{}
}

// Append implements HistorySink.
func (s *MemoryHistorySink) Append(_ context.Context, rec models.RunRecord) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

// List implements HistorySink, newest first.
func (s *MemoryHistorySink) List(_ context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.RunRecord, len(s.records))
	copy(out, s.records)
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
