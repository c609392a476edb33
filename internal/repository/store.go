// Package repository persists the assistants link entities in a relational store.
package repository

import (
	"context"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// Store defines the interface for data persistence.
//
// Get* lookups return (nil, nil) when the row does not exist and return
// soft-deleted rows as well, so historical traversal keeps working. List*
// operations return active rows only. Delete* operations soft-delete and
// are no-ops on rows that are already deleted; they return
// domain.ErrNotFound when the id is unknown.
type Store interface {
	// Assistant operations
	CreateAssistant(ctx context.Context, a *domain.Assistant) error
	GetAssistant(ctx context.Context, id string) (*domain.Assistant, error)
	ListAssistants(ctx context.Context) ([]domain.Assistant, error)
	UpdateAssistant(ctx context.Context, a *domain.Assistant) error
	DeleteAssistant(ctx context.Context, id string, at time.Time) error

	// Category operations
	CreateCategory(ctx context.Context, c *domain.Category) error
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	GetCategoryByName(ctx context.Context, name string, typ domain.CategoryType) (*domain.Category, error)
	ListCategories(ctx context.Context, typ domain.CategoryType) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) error
	DeleteCategory(ctx context.Context, id string, at time.Time) error
	ListCategoriesForAssistant(ctx context.Context, assistantID string) ([]domain.Category, error)

	// Topic operations
	CreateTopic(ctx context.Context, t *domain.Topic) error
	GetTopic(ctx context.Context, id string) (*domain.Topic, error)
	GetTopicByName(ctx context.Context, name string) (*domain.Topic, error)
	ListTopics(ctx context.Context) ([]domain.Topic, error)
	DeleteTopic(ctx context.Context, id string, at time.Time) error
	ListTopicsForCategory(ctx context.Context, categoryID string) ([]domain.Topic, error)

	// Datasource operations
	CreateDatasource(ctx context.Context, d *domain.Datasource) error
	GetDatasource(ctx context.Context, id string) (*domain.Datasource, error)
	ListDatasources(ctx context.Context) ([]domain.Datasource, error)
	UpdateDatasource(ctx context.Context, d *domain.Datasource) error
	DeleteDatasource(ctx context.Context, id string, at time.Time) error
	ListDatasourcesForAssistant(ctx context.Context, assistantID string) ([]domain.Datasource, error)

	// Join entity operations
	CreateAssistantCategory(ctx context.Context, l *domain.AssistantCategory) error
	GetAssistantCategory(ctx context.Context, id string) (*domain.AssistantCategory, error)
	ListAssistantCategories(ctx context.Context, assistantID string) ([]domain.AssistantCategory, error)
	DeleteAssistantCategory(ctx context.Context, id string, at time.Time) error

	CreateAssistantDatasource(ctx context.Context, l *domain.AssistantDatasource) error
	GetAssistantDatasource(ctx context.Context, id string) (*domain.AssistantDatasource, error)
	ListAssistantDatasources(ctx context.Context, assistantID string) ([]domain.AssistantDatasource, error)
	DeleteAssistantDatasource(ctx context.Context, id string, at time.Time) error

	CreateCategoryTopic(ctx context.Context, l *domain.CategoryTopic) error
	GetCategoryTopic(ctx context.Context, id string) (*domain.CategoryTopic, error)
	FindCategoryTopic(ctx context.Context, categoryID, topicID string) (*domain.CategoryTopic, error)
	ListCategoryTopics(ctx context.Context, categoryID string) ([]domain.CategoryTopic, error)
	DeleteCategoryTopic(ctx context.Context, id string, at time.Time) error

	// Conversation operations
	CreateConversation(ctx context.Context, c *domain.Conversation) error
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, assistantID string) ([]domain.Conversation, error)
	DeleteConversation(ctx context.Context, id string, at time.Time) error

	// Message operations
	CreateMessage(ctx context.Context, m *domain.Message) error
	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)
	RecentMessages(ctx context.Context, conversationID string, before time.Time, limit int) ([]domain.Message, error)
	// AppendExchange writes conv (when non-nil) and all messages in a single
	// transaction. Either every row is written or none is.
	AppendExchange(ctx context.Context, conv *domain.Conversation, messages ...*domain.Message) error
	// AssignMessageLabels sets the category and topic of a message and merges
	// the metadata patch. A topic requires a category, and the pair must be
	// joined by an active CategoryTopic; otherwise domain.ErrInvalidLabel.
	AssignMessageLabels(ctx context.Context, messageID string, labels domain.MessageLabels) error

	// Analytics operations
	CategoriesForAssistants(ctx context.Context, assistantIDs []string) ([]domain.AssistantCategoryRow, error)
	TopicCounts(ctx context.Context, assistantIDs []string) ([]domain.TopicCount, error)
	TopicMessages(ctx context.Context, q domain.TopicMessageQuery) ([]domain.TopicMessage, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Close() error
}
