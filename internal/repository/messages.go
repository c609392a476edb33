package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

const messageColumns = `id, role, content, sent_at, metadata, conversation_id, category_id, topic_id, created_at, updated_at, deleted_at`

func scanMessage(row interface{ Scan(...any) error }) (*domain.Message, error) {
	var m domain.Message
	var conversationID, categoryID, topicID sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(&m.ID, &m.Role, &m.Content, &m.Timestamp, &m.Metadata,
		&conversationID, &categoryID, &topicID, &m.CreatedAt, &m.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	m.ConversationID = conversationID.String
	m.CategoryID = categoryID.String
	m.TopicID = topicID.String
	m.DeletedAt = nullTime(deletedAt)
	return &m, nil
}

func collectMessages(rows *sql.Rows) ([]domain.Message, error) {
	defer rows.Close()
	var messages []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// CreateMessage creates a standalone message. Role falls back to USER and
// the timestamp to the current time.
func (s *SQLStore) CreateMessage(ctx context.Context, m *domain.Message) error {
	return s.withTx(ctx, func(c conn) error {
		return s.insertMessage(ctx, c, m)
	})
}

func (s *SQLStore) insertMessage(ctx context.Context, c conn, m *domain.Message) error {
	if m.ConversationID != "" {
		if err := c.requireActive(ctx, "conversations", "conversation", m.ConversationID); err != nil {
			return err
		}
	}
	if m.CategoryID != "" || m.TopicID != "" {
		if err := validateLabels(ctx, c, m.CategoryID, m.TopicID); err != nil {
			return err
		}
	}

	stamp(&m.ID, &m.Timestamps)
	if m.Role == "" {
		m.Role = domain.RoleUser
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = m.CreatedAt
	}
	if m.Metadata == nil {
		m.Metadata = domain.Metadata{}
	}
	_, err := c.exec(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Role, m.Content, m.Timestamp, m.Metadata,
		nullString(m.ConversationID), nullString(m.CategoryID), nullString(m.TopicID),
		m.CreatedAt, m.UpdatedAt, m.DeletedAt)
	return s.mapErr(err)
}

// GetMessage retrieves a message by ID.
func (s *SQLStore) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	return getMessage(ctx, s.conn(), id)
}

func getMessage(ctx context.Context, c conn, id string) (*domain.Message, error) {
	m, err := scanMessage(c.queryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// ListMessages lists the messages of a conversation in timestamp order.
// Ties fall back to creation order.
func (s *SQLStore) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.conn().query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_id = ? AND deleted_at IS NULL
		 ORDER BY sent_at, created_at, id`, conversationID)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

// RecentMessages returns up to limit messages sent strictly before the given
// time, oldest first.
func (s *SQLStore) RecentMessages(ctx context.Context, conversationID string, before time.Time, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.conn().query(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE conversation_id = ? AND deleted_at IS NULL AND sent_at < ?
		 ORDER BY sent_at DESC, created_at DESC, id DESC
		 LIMIT ?`, conversationID, before, limit)
	if err != nil {
		return nil, err
	}
	messages, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendExchange inserts conv when it is non-nil, then every message under
// conv, in one transaction.
func (s *SQLStore) AppendExchange(ctx context.Context, conv *domain.Conversation, messages ...*domain.Message) error {
	if len(messages) == 0 && conv == nil {
		return nil
	}
	return s.withTx(ctx, func(c conn) error {
		if conv != nil {
			if err := s.insertConversation(ctx, c, conv); err != nil {
				return err
			}
		}
		var last time.Time
		for _, m := range messages {
			if conv != nil && m.ConversationID == "" {
				m.ConversationID = conv.ID
			}
			if err := s.insertMessage(ctx, c, m); err != nil {
				return fmt.Errorf("failed to insert %s message: %w", m.Role, err)
			}
			if m.Timestamp.After(last) {
				last = m.Timestamp
			}
		}
		if conv == nil && len(messages) > 0 && messages[0].ConversationID != "" {
			_, err := c.exec(ctx,
				`UPDATE conversations SET updated_at = ? WHERE id = ?`, last, messages[0].ConversationID)
			return err
		}
		return nil
	})
}

// AssignMessageLabels writes the evaluator's labels onto a message. An
// empty CategoryID with an empty TopicID clears nothing and only merges
// metadata.
func (s *SQLStore) AssignMessageLabels(ctx context.Context, messageID string, labels domain.MessageLabels) error {
	return s.withTx(ctx, func(c conn) error {
		m, err := getMessage(ctx, c, messageID)
		if err != nil {
			return err
		}
		if m == nil {
			return notFound("message", messageID)
		}

		categoryID, topicID := m.CategoryID, m.TopicID
		if labels.CategoryID != "" || labels.TopicID != "" {
			if err := validateLabels(ctx, c, labels.CategoryID, labels.TopicID); err != nil {
				return err
			}
			categoryID, topicID = labels.CategoryID, labels.TopicID
		}

		metadata := m.Metadata.Merge(labels.Metadata)
		_, err = c.exec(ctx,
			`UPDATE messages SET category_id = ?, topic_id = ?, metadata = ?, updated_at = ? WHERE id = ?`,
			nullString(categoryID), nullString(topicID), metadata, now(), messageID)
		return err
	})
}

// validateLabels enforces the label consistency rule: a topic needs a
// category, both must be active, and the pair must be joined by an active
// CategoryTopic.
func validateLabels(ctx context.Context, c conn, categoryID, topicID string) error {
	if categoryID == "" {
		return &domain.LabelError{Topic: topicID, Reason: "topic requires a category"}
	}
	ok, err := c.exists(ctx, "categories", categoryID, true)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.LabelError{Category: categoryID, Topic: topicID, Reason: "category is not active"}
	}
	if topicID == "" {
		return nil
	}
	ok, err = c.exists(ctx, "topics", topicID, true)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.LabelError{Category: categoryID, Topic: topicID, Reason: "topic is not active"}
	}
	link, err := findCategoryTopic(ctx, c, categoryID, topicID)
	if err != nil {
		return err
	}
	if link == nil {
		return &domain.LabelError{Category: categoryID, Topic: topicID, Reason: "topic does not belong to category"}
	}
	return nil
}
