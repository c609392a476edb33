package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

const topicColumns = `id, name, created_at, updated_at, deleted_at`

func scanTopic(row interface{ Scan(...any) error }) (*domain.Topic, error) {
	var t domain.Topic
	var deletedAt sql.NullTime
	if err := row.Scan(&t.ID, &t.Name, &t.CreatedAt, &t.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	t.DeletedAt = nullTime(deletedAt)
	return &t, nil
}

func collectTopics(rows *sql.Rows) ([]domain.Topic, error) {
	defer rows.Close()
	var topics []domain.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *t)
	}
	return topics, rows.Err()
}

// CreateTopic creates a new topic. A duplicate name yields domain.ErrConflict.
func (s *SQLStore) CreateTopic(ctx context.Context, t *domain.Topic) error {
	stamp(&t.ID, &t.Timestamps)
	_, err := s.conn().exec(ctx,
		`INSERT INTO topics (`+topicColumns+`) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.CreatedAt, t.UpdatedAt, t.DeletedAt)
	return s.mapErr(err)
}

// GetTopic retrieves a topic by ID.
func (s *SQLStore) GetTopic(ctx context.Context, id string) (*domain.Topic, error) {
	t, err := scanTopic(s.conn().queryRow(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// GetTopicByName retrieves a topic by its unique name, deleted or not.
func (s *SQLStore) GetTopicByName(ctx context.Context, name string) (*domain.Topic, error) {
	t, err := scanTopic(s.conn().queryRow(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE name = ?`, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// ListTopics lists active topics by name.
func (s *SQLStore) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	rows, err := s.conn().query(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return collectTopics(rows)
}

// DeleteTopic soft-deletes a topic.
func (s *SQLStore) DeleteTopic(ctx context.Context, id string, at time.Time) error {
	return s.conn().softDelete(ctx, "topics", "topic", id, at)
}

// ListTopicsForCategory returns the active topics joined to the category
// through active links.
func (s *SQLStore) ListTopicsForCategory(ctx context.Context, categoryID string) ([]domain.Topic, error) {
	rows, err := s.conn().query(ctx,
		`SELECT t.id, t.name, t.created_at, t.updated_at, t.deleted_at
		 FROM topics t
		 JOIN category_topics ct ON ct.topic_id = t.id
		 WHERE ct.category_id = ? AND ct.deleted_at IS NULL AND t.deleted_at IS NULL
		 ORDER BY t.name`, categoryID)
	if err != nil {
		return nil, err
	}
	return collectTopics(rows)
}
