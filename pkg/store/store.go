// Package store holds the persistence boundaries: conversations and their
// messages, the append-only run history, and content-addressed checkpoints.
// Postgres implementations back production; in-memory implementations back
// tests and dev mode with identical semantics.
package store

import (
	"context"

	"github.com/maestro-ai/maestro/pkg/models"
)

// ConversationStore persists conversations and their ordered messages.
// Implementations serialize concurrent appends to the same conversation.
type ConversationStore interface {
	// Create inserts an empty conversation and returns it.
	Create(ctx context.Context, title string) (models.Conversation, error)

	// Get returns the conversation with its messages in CreatedAt order.
	// An existing conversation with zero messages is returned, not an error.
	Get(ctx context.Context, id string) (models.Conversation, error)

	// List returns summaries ordered by UpdatedAt descending, without
	// loading messages.
	List(ctx context.Context) ([]models.ConversationSummary, error)

	// AppendMessage adds a message and bumps the conversation's UpdatedAt.
	AppendMessage(ctx context.Context, conversationID string, msg models.Message) (models.Message, error)

	// RecentMessages returns the trailing n messages in CreatedAt order.
	RecentMessages(ctx context.Context, conversationID string, n int) ([]models.Message, error)
}

// HistorySink records completed runs for auditing. Append-only.
type HistorySink interface {
	Append(ctx context.Context, rec models.RunRecord) error
	List(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// CheckpointStore persists run checkpoints as content-addressed blobs.
type CheckpointStore interface {
	// Save stores the checkpoint and returns its content-derived id.
	Save(ctx context.Context, cp models.Checkpoint) (string, error)
	Load(ctx context.Context, id string) (models.Checkpoint, error)
	Delete(ctx context.Context, id string) error
}
