package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// CategoriesForAssistants returns the active categories linked to any of the
// given assistants, plus every active DEFAULT category with an empty
// assistant id.
func (s *SQLStore) CategoriesForAssistants(ctx context.Context, assistantIDs []string) ([]domain.AssistantCategoryRow, error) {
	var args []any
	query := `SELECT c.id, c.name, NULL AS assistant_id
		 FROM categories c
		 WHERE c.type = ? AND c.deleted_at IS NULL`
	args = append(args, domain.CategoryTypeDefault)

	if len(assistantIDs) > 0 {
		query += `
		 UNION
		 SELECT c.id, c.name, ac.assistant_id
		 FROM categories c
		 JOIN assistant_categories ac ON ac.category_id = c.id
		 WHERE ac.deleted_at IS NULL AND c.deleted_at IS NULL
		   AND ac.assistant_id IN (` + placeholders(len(assistantIDs)) + `)`
		args = append(args, anyArgs(assistantIDs)...)
	}
	query += ` ORDER BY 2, 3`

	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AssistantCategoryRow
	for rows.Next() {
		var r domain.AssistantCategoryRow
		var assistantID sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &assistantID); err != nil {
			return nil, err
		}
		r.AssistantID = assistantID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// TopicCounts aggregates labelled messages per assistant, category and
// topic, split by the classification recorded in message metadata. An
// empty assistantIDs covers every assistant.
func (s *SQLStore) TopicCounts(ctx context.Context, assistantIDs []string) ([]domain.TopicCount, error) {
	classification := s.dialect.jsonText("m.metadata", domain.MetaClassification)
	countOf := func(c domain.Classification) string {
		return `SUM(CASE WHEN ` + classification + ` = '` + string(c) + `' THEN 1 ELSE 0 END)`
	}

	var b strings.Builder
	b.WriteString(`SELECT conv.assistant_id, c.id, c.name, t.id, t.name, COUNT(m.id), `)
	b.WriteString(countOf(domain.ClassificationAnswered) + `, `)
	b.WriteString(countOf(domain.ClassificationNotAnswered) + `, `)
	b.WriteString(countOf(domain.ClassificationNotAllowed))
	b.WriteString(`
		 FROM messages m
		 JOIN conversations conv ON conv.id = m.conversation_id
		 JOIN categories c ON c.id = m.category_id
		 JOIN topics t ON t.id = m.topic_id
		 WHERE m.deleted_at IS NULL`)
	var args []any
	if len(assistantIDs) > 0 {
		b.WriteString(` AND conv.assistant_id IN (` + placeholders(len(assistantIDs)) + `)`)
		args = anyArgs(assistantIDs)
	}
	b.WriteString(`
		 GROUP BY conv.assistant_id, c.id, c.name, t.id, t.name
		 ORDER BY COUNT(m.id) DESC, c.name, t.name`)

	rows, err := s.conn().query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TopicCount
	for rows.Next() {
		var tc domain.TopicCount
		if err := rows.Scan(&tc.AssistantID, &tc.CategoryID, &tc.CategoryName, &tc.TopicID, &tc.TopicName,
			&tc.TopicCount, &tc.NumAnswered, &tc.NumNotAnswered, &tc.NumNotAllowed); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// TopicMessages lists the labelled messages matching q, newest first.
func (s *SQLStore) TopicMessages(ctx context.Context, q domain.TopicMessageQuery) ([]domain.TopicMessage, error) {
	classification := s.dialect.jsonText("m.metadata", domain.MetaClassification)
	sentiment := s.dialect.jsonNumber("m.metadata", domain.MetaSentiment)

	var b strings.Builder
	b.WriteString(`SELECT m.id, m.content, m.sent_at, ` + classification + `, ` + sentiment + `,
		 m.conversation_id, conv.assistant_id
		 FROM messages m
		 JOIN conversations conv ON conv.id = m.conversation_id
		 WHERE m.deleted_at IS NULL AND m.topic_id = ? AND m.category_id = ?`)
	args := []any{q.TopicID, q.CategoryID}
	if len(q.AssistantIDs) > 0 {
		b.WriteString(` AND conv.assistant_id IN (` + placeholders(len(q.AssistantIDs)) + `)`)
		args = append(args, anyArgs(q.AssistantIDs)...)
	}
	if len(q.AnswerTypes) > 0 {
		b.WriteString(` AND ` + classification + ` IN (` + placeholders(len(q.AnswerTypes)) + `)`)
		for _, a := range q.AnswerTypes {
			args = append(args, string(a))
		}
	}
	b.WriteString(` ORDER BY m.sent_at DESC, m.id`)

	rows, err := s.conn().query(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TopicMessage
	for rows.Next() {
		var tm domain.TopicMessage
		var cls sql.NullString
		var sent sql.NullFloat64
		if err := rows.Scan(&tm.ID, &tm.Content, &tm.Timestamp, &cls, &sent, &tm.ConversationID, &tm.AssistantID); err != nil {
			return nil, err
		}
		tm.Classification = cls.String
		if sent.Valid {
			v := sent.Float64
			tm.Sentiment = &v
		}
		out = append(out, tm)
	}
	return out, rows.Err()
}
