package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maestro-ai/maestro/pkg/models"
)

// PostgresConversationStore implements ConversationStore over pgx.
// Appends take a transaction-scoped advisory lock on the conversation id so
// two runs of the same conversation never produce a torn message list.
type PostgresConversationStore struct {
	pool *pgxpool.Pool
}

// NewPostgresConversationStore wraps the shared pool.
func NewPostgresConversationStore(pool *pgxpool.Pool) *PostgresConversationStore {
	return &PostgresConversationStore{pool: pool}
}

// Create implements ConversationStore.
func (s *PostgresConversationStore) Create(ctx context.Context, title string) (models.Conversation, error) {
	conv := models.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	conv.UpdatedAt = conv.CreatedAt

	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		conv.ID, conv.Title, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

// Get implements ConversationStore. The conversation record is consulted
// first so an empty conversation is found, not reported missing.
func (s *PostgresConversationStore) Get(ctx context.Context, id string) (models.Conversation, error) {
	var conv models.Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = $1`, id).
		Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Conversation{}, models.ErrNotFound
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("loading conversation: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, role, content, agent_id, reasoning, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.AgentID, &m.Reasoning, &m.CreatedAt); err != nil {
			return models.Conversation{}, fmt.Errorf("scanning message: %w", err)
		}
		conv.Messages = append(conv.Messages, m)
	}
	return conv, rows.Err()
}

// List implements ConversationStore. Messages are not loaded.
func (s *PostgresConversationStore) List(ctx context.Context) ([]models.ConversationSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.title, c.created_at, c.updated_at,
		        (SELECT count(*) FROM messages m WHERE m.conversation_id = c.id)
		 FROM conversations c ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []models.ConversationSummary
	for rows.Next() {
		var cs models.ConversationSummary
		if err := rows.Scan(&cs.ID, &cs.Title, &cs.CreatedAt, &cs.UpdatedAt, &cs.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// AppendMessage implements ConversationStore.
func (s *PostgresConversationStore) AppendMessage(ctx context.Context, conversationID string, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Message{}, fmt.Errorf("starting append: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Conversation-scoped advisory lock, released at commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, conversationID); err != nil {
		return models.Message{}, fmt.Errorf("locking conversation: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		conversationID, msg.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("touching conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Message{}, models.ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, agent_id, reasoning, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, conversationID, msg.Role, msg.Content, msg.AgentID, msg.Reasoning, msg.CreatedAt)
	if err != nil {
		return models.Message{}, fmt.Errorf("inserting message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Message{}, fmt.Errorf("committing append: %w", err)
	}
	return msg, nil
}

// RecentMessages implements ConversationStore.
func (s *PostgresConversationStore) RecentMessages(ctx context.Context, conversationID string, n int) ([]models.Message, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, role, content, agent_id, reasoning, created_at FROM (
		     SELECT id, role, content, agent_id, reasoning, created_at
		     FROM messages WHERE conversation_id = $1
		     ORDER BY created_at DESC, id DESC LIMIT $2
		 ) recent ORDER BY created_at, id`, conversationID, n)
	if err != nil {
		return nil, fmt.Errorf("loading recent messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.AgentID, &m.Reasoning, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PostgresHistorySink implements HistorySink over pgx.
type PostgresHistorySink struct {
	pool *pgxpool.Pool
}

// NewPostgresHistorySink wraps the shared pool.
func NewPostgresHistorySink(pool *pgxpool.Pool) *PostgresHistorySink {
	return &PostgresHistorySink{pool: pool}
}

// Append implements HistorySink.
func (s *PostgresHistorySink) Append(ctx context.Context, rec models.RunRecord) error {
	routing, err := marshalNullable(rec.Routing)
	if err != nil {
		return err
	}
	quality, err := marshalNullable(rec.Quality)
	if err != nil {
		return err
	}
	durations, err := json.Marshal(rec.Durations)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO run_history (run_id, task_preview, status, routing, quality, durations, started_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.RunID, rec.TaskPreview, rec.Status, routing, quality, durations, rec.StartedAt, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("appending run record: %w", err)
	}
	return nil
}

// List implements HistorySink, newest first.
func (s *PostgresHistorySink) List(ctx context.Context, limit int) ([]models.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, task_preview, status, routing, quality, durations, started_at, completed_at
		 FROM run_history ORDER BY completed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing run history: %w", err)
	}
	defer rows.Close()

	var out []models.RunRecord
	for rows.Next() {
		var rec models.RunRecord
		var routing, quality, durations []byte
		if err := rows.Scan(&rec.RunID, &rec.TaskPreview, &rec.Status, &routing, &quality, &durations, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning run record: %w", err)
		}
		if routing != nil {
			rec.Routing = &models.RoutingDecision{}
			if err := json.Unmarshal(routing, rec.Routing); err != nil {
				return nil, err
			}
		}
		if quality != nil {
			rec.Quality = &models.QualityVerdict{}
			if err := json.Unmarshal(quality, rec.Quality); err != nil {
				return nil, err
			}
		}
		if err := json.Unmarshal(durations, &rec.Durations); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func marshalNullable(v any) ([]byte, error) {
	switch t := v.(type) {
	case *models.RoutingDecision:
		if t == nil {
			return nil, nil
		}
	case *models.QualityVerdict:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
