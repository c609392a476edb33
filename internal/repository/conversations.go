package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

const conversationColumns = `id, assistant_id, metadata, created_at, updated_at, deleted_at`

func scanConversation(row interface{ Scan(...any) error }) (*domain.Conversation, error) {
	var c domain.Conversation
	var deletedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.AssistantID, &c.Metadata, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	c.DeletedAt = nullTime(deletedAt)
	return &c, nil
}

// CreateConversation creates a conversation for an active assistant.
func (s *SQLStore) CreateConversation(ctx context.Context, c *domain.Conversation) error {
	return s.withTx(ctx, func(tx conn) error {
		return s.insertConversation(ctx, tx, c)
	})
}

func (s *SQLStore) insertConversation(ctx context.Context, tx conn, c *domain.Conversation) error {
	if err := tx.requireActive(ctx, "assistants", "assistant", c.AssistantID); err != nil {
		return err
	}
	stamp(&c.ID, &c.Timestamps)
	if c.Metadata == nil {
		c.Metadata = domain.Metadata{}
	}
	_, err := tx.exec(ctx,
		`INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.AssistantID, c.Metadata, c.CreatedAt, c.UpdatedAt, c.DeletedAt)
	return s.mapErr(err)
}

// GetConversation retrieves a conversation by ID. Messages are not loaded.
func (s *SQLStore) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	c, err := scanConversation(s.conn().queryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListConversations lists active conversations, newest first. An empty
// assistantID lists every conversation.
func (s *SQLStore) ListConversations(ctx context.Context, assistantID string) ([]domain.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE deleted_at IS NULL`
	var args []any
	if assistantID != "" {
		query += ` AND assistant_id = ?`
		args = append(args, assistantID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, *c)
	}
	return conversations, rows.Err()
}

// DeleteConversation soft-deletes a conversation. Its messages are kept.
func (s *SQLStore) DeleteConversation(ctx context.Context, id string, at time.Time) error {
	return s.conn().softDelete(ctx, "conversations", "conversation", id, at)
}
