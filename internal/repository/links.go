package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// linkTable describes one of the join tables. Both sides are nullable
// foreign keys.
type linkTable struct {
	table       string
	entity      string
	left        string
	leftTable   string
	leftEntity  string
	right       string
	rightTable  string
	rightEntity string
}

var (
	assistantCategoryLinks = linkTable{
		table: "assistant_categories", entity: "assistant category",
		left: "assistant_id", leftTable: "assistants", leftEntity: "assistant",
		right: "category_id", rightTable: "categories", rightEntity: "category",
	}
	assistantDatasourceLinks = linkTable{
		table: "assistant_datasources", entity: "assistant datasource",
		left: "assistant_id", leftTable: "assistants", leftEntity: "assistant",
		right: "datasource_id", rightTable: "datasources", rightEntity: "datasource",
	}
	categoryTopicLinks = linkTable{
		table: "category_topics", entity: "category topic",
		left: "category_id", leftTable: "categories", leftEntity: "category",
		right: "topic_id", rightTable: "topics", rightEntity: "topic",
	}
)

// link is the common shape of every join row.
type link struct {
	id    string
	left  string
	right string
	ts    domain.Timestamps
}

func (t linkTable) columns() string {
	return fmt.Sprintf("id, %s, %s, created_at, updated_at, deleted_at", t.left, t.right)
}

func scanLink(row interface{ Scan(...any) error }) (*link, error) {
	var l link
	var left, right sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(&l.id, &left, &right, &l.ts.CreatedAt, &l.ts.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	l.left = left.String
	l.right = right.String
	l.ts.DeletedAt = nullTime(deletedAt)
	return &l, nil
}

// createLink inserts a join row after checking that both parents exist and
// are active. An active row for the same pair is a conflict.
func (s *SQLStore) createLink(ctx context.Context, t linkTable, l *link) error {
	return s.withTx(ctx, func(c conn) error {
		if err := c.requireActive(ctx, t.leftTable, t.leftEntity, l.left); err != nil {
			return err
		}
		if err := c.requireActive(ctx, t.rightTable, t.rightEntity, l.right); err != nil {
			return err
		}
		var n int
		if err := c.queryRow(ctx,
			`SELECT COUNT(*) FROM `+t.table+` WHERE `+t.left+` = ? AND `+t.right+` = ? AND deleted_at IS NULL`,
			l.left, l.right).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return &conflictError{err: fmt.Errorf("%s %s is already linked to %s %s", t.leftEntity, l.left, t.rightEntity, l.right)}
		}
		stamp(&l.id, &l.ts)
		_, err := c.exec(ctx,
			`INSERT INTO `+t.table+` (`+t.columns()+`) VALUES (?, ?, ?, ?, ?, ?)`,
			l.id, nullString(l.left), nullString(l.right), l.ts.CreatedAt, l.ts.UpdatedAt, l.ts.DeletedAt)
		return s.mapErr(err)
	})
}

func (s *SQLStore) getLink(ctx context.Context, t linkTable, id string) (*link, error) {
	l, err := scanLink(s.conn().queryRow(ctx,
		`SELECT `+t.columns()+` FROM `+t.table+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

// listLinks returns active links. An empty leftID lists every active link.
func (s *SQLStore) listLinks(ctx context.Context, t linkTable, leftID string) ([]link, error) {
	query := `SELECT ` + t.columns() + ` FROM ` + t.table + ` WHERE deleted_at IS NULL`
	var args []any
	if leftID != "" {
		query += ` AND ` + t.left + ` = ?`
		args = append(args, leftID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *l)
	}
	return links, rows.Err()
}

func (s *SQLStore) deleteLink(ctx context.Context, t linkTable, id string, at time.Time) error {
	return s.conn().softDelete(ctx, t.table, t.entity, id, at)
}

// requireActive fails with a ReferenceError when id is empty, unknown or
// soft-deleted.
func (c conn) requireActive(ctx context.Context, table, entity, id string) error {
	if id == "" {
		return missingRef(entity, id)
	}
	ok, err := c.exists(ctx, table, id, true)
	if err != nil {
		return err
	}
	if !ok {
		return missingRef(entity, id)
	}
	return nil
}

// CreateAssistantCategory links an assistant to a category.
func (s *SQLStore) CreateAssistantCategory(ctx context.Context, ac *domain.AssistantCategory) error {
	l := &link{id: ac.ID, left: ac.AssistantID, right: ac.CategoryID, ts: ac.Timestamps}
	if err := s.createLink(ctx, assistantCategoryLinks, l); err != nil {
		return err
	}
	ac.ID, ac.Timestamps = l.id, l.ts
	return nil
}

func (s *SQLStore) GetAssistantCategory(ctx context.Context, id string) (*domain.AssistantCategory, error) {
	l, err := s.getLink(ctx, assistantCategoryLinks, id)
	if err != nil || l == nil {
		return nil, err
	}
	return &domain.AssistantCategory{ID: l.id, AssistantID: l.left, CategoryID: l.right, Timestamps: l.ts}, nil
}

// ListAssistantCategories lists active assistant-category links; an empty
// assistantID lists all of them.
func (s *SQLStore) ListAssistantCategories(ctx context.Context, assistantID string) ([]domain.AssistantCategory, error) {
	links, err := s.listLinks(ctx, assistantCategoryLinks, assistantID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AssistantCategory, len(links))
	for i, l := range links {
		out[i] = domain.AssistantCategory{ID: l.id, AssistantID: l.left, CategoryID: l.right, Timestamps: l.ts}
	}
	return out, nil
}

func (s *SQLStore) DeleteAssistantCategory(ctx context.Context, id string, at time.Time) error {
	return s.deleteLink(ctx, assistantCategoryLinks, id, at)
}

// CreateAssistantDatasource links an assistant to a datasource.
func (s *SQLStore) CreateAssistantDatasource(ctx context.Context, ad *domain.AssistantDatasource) error {
	l := &link{id: ad.ID, left: ad.AssistantID, right: ad.DatasourceID, ts: ad.Timestamps}
	if err := s.createLink(ctx, assistantDatasourceLinks, l); err != nil {
		return err
	}
	ad.ID, ad.Timestamps = l.id, l.ts
	return nil
}

func (s *SQLStore) GetAssistantDatasource(ctx context.Context, id string) (*domain.AssistantDatasource, error) {
	l, err := s.getLink(ctx, assistantDatasourceLinks, id)
	if err != nil || l == nil {
		return nil, err
	}
	return &domain.AssistantDatasource{ID: l.id, AssistantID: l.left, DatasourceID: l.right, Timestamps: l.ts}, nil
}

// ListAssistantDatasources lists the active datasource links of an
// assistant with the datasource rows attached.
func (s *SQLStore) ListAssistantDatasources(ctx context.Context, assistantID string) ([]domain.AssistantDatasource, error) {
	links, err := s.listLinks(ctx, assistantDatasourceLinks, assistantID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AssistantDatasource, len(links))
	for i, l := range links {
		out[i] = domain.AssistantDatasource{ID: l.id, AssistantID: l.left, DatasourceID: l.right, Timestamps: l.ts}
		if l.right == "" {
			continue
		}
		ds, err := s.GetDatasource(ctx, l.right)
		if err != nil {
			return nil, err
		}
		out[i].Datasource = ds
	}
	return out, nil
}

func (s *SQLStore) DeleteAssistantDatasource(ctx context.Context, id string, at time.Time) error {
	return s.deleteLink(ctx, assistantDatasourceLinks, id, at)
}

// CreateCategoryTopic links a category to a topic.
func (s *SQLStore) CreateCategoryTopic(ctx context.Context, ct *domain.CategoryTopic) error {
	l := &link{id: ct.ID, left: ct.CategoryID, right: ct.TopicID, ts: ct.Timestamps}
	if err := s.createLink(ctx, categoryTopicLinks, l); err != nil {
		return err
	}
	ct.ID, ct.Timestamps = l.id, l.ts
	return nil
}

func (s *SQLStore) GetCategoryTopic(ctx context.Context, id string) (*domain.CategoryTopic, error) {
	l, err := s.getLink(ctx, categoryTopicLinks, id)
	if err != nil || l == nil {
		return nil, err
	}
	return &domain.CategoryTopic{ID: l.id, CategoryID: l.left, TopicID: l.right, Timestamps: l.ts}, nil
}

// FindCategoryTopic returns the active link joining categoryID and topicID.
func (s *SQLStore) FindCategoryTopic(ctx context.Context, categoryID, topicID string) (*domain.CategoryTopic, error) {
	return findCategoryTopic(ctx, s.conn(), categoryID, topicID)
}

func findCategoryTopic(ctx context.Context, c conn, categoryID, topicID string) (*domain.CategoryTopic, error) {
	l, err := scanLink(c.queryRow(ctx,
		`SELECT `+categoryTopicLinks.columns()+` FROM category_topics
		 WHERE category_id = ? AND topic_id = ? AND deleted_at IS NULL
		 ORDER BY created_at LIMIT 1`, categoryID, topicID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.CategoryTopic{ID: l.id, CategoryID: l.left, TopicID: l.right, Timestamps: l.ts}, nil
}

// ListCategoryTopics lists active category-topic links; an empty categoryID
// lists all of them.
func (s *SQLStore) ListCategoryTopics(ctx context.Context, categoryID string) ([]domain.CategoryTopic, error) {
	links, err := s.listLinks(ctx, categoryTopicLinks, categoryID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CategoryTopic, len(links))
	for i, l := range links {
		out[i] = domain.CategoryTopic{ID: l.id, CategoryID: l.left, TopicID: l.right, Timestamps: l.ts}
	}
	return out, nil
}

func (s *SQLStore) DeleteCategoryTopic(ctx context.Context, id string, at time.Time) error {
	return s.deleteLink(ctx, categoryTopicLinks, id, at)
}
