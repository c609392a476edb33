package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

func (s *Service) CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Required("name")
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, &domain.ValidationError{Field: "type", Reason: fmt.Sprintf("must be %s or %s", domain.CategoryTypeCustom, domain.CategoryTypeDefault)}
	}
	c := &domain.Category{Name: name, Description: in.Description, Type: in.Type}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return found(s.store.GetCategory(ctx, id))("category", id)
}

// ListCategories lists active categories of every type.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.listCategories(ctx, "")
}

// ListDefaultCategories lists the active DEFAULT categories.
func (s *Service) ListDefaultCategories(ctx context.Context) ([]domain.Category, error) {
	return s.listCategories(ctx, domain.CategoryTypeDefault)
}

func (s *Service) listCategories(ctx context.Context, typ domain.CategoryType) ([]domain.Category, error) {
	categories, err := s.store.ListCategories(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, in domain.CategoryInput) (*domain.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Active() {
		return nil, &domain.NotFoundError{Entity: "category", ID: id}
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.Description != "" {
		c.Description = in.Description
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// ListTopicsForCategory lists the active topics linked to a category.
func (s *Service) ListTopicsForCategory(ctx context.Context, categoryID string) ([]domain.Topic, error) {
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	topics, err := s.store.ListTopicsForCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

// ListCategoriesForAssistant lists the categories the evaluator would offer
// for the assistant's replies.
func (s *Service) ListCategoriesForAssistant(ctx context.Context, assistantID string) ([]domain.Category, error) {
	if _, err := s.GetAssistant(ctx, assistantID); err != nil {
		return nil, err
	}
	sets, err := s.candidateLabels(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(sets))
	for _, set := range sets {
		categories = append(categories, set.Category)
	}
	return categories, nil
}

func (s *Service) CreateTopic(ctx context.Context, name string) (*domain.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Required("name")
	}
	t := &domain.Topic{Name: name}
	if err := s.store.CreateTopic(ctx, t); err != nil {
		return nil, fmt.Errorf("failed to create topic: %w", err)
	}
	return t, nil
}

func (s *Service) GetTopic(ctx context.Context, id string) (*domain.Topic, error) {
	return found(s.store.GetTopic(ctx, id))("topic", id)
}

func (s *Service) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	topics, err := s.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

func (s *Service) DeleteTopic(ctx context.Context, id string) error {
	if err := s.store.DeleteTopic(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete topic: %w", err)
	}
	return nil
}

// CreateCategoryTopic links a topic to a category. An active link for the
// same pair is a conflict.
func (s *Service) CreateCategoryTopic(ctx context.Context, categoryID, topicID string) (*domain.CategoryTopic, error) {
	if categoryID == "" {
		return nil, domain.Required("category_id")
	}
	if topicID == "" {
		return nil, domain.Required("topic_id")
	}
	existing, err := s.store.FindCategoryTopic(ctx, categoryID, topicID)
	if err != nil {
		return nil, fmt.Errorf("failed to find category topic: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("topic %q is already linked to category %q: %w", topicID, categoryID, domain.ErrConflict)
	}
	l := &domain.CategoryTopic{CategoryID: categoryID, TopicID: topicID}
	if err := s.store.CreateCategoryTopic(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create category topic: %w", err)
	}
	return l, nil
}

func (s *Service) ListCategoryTopics(ctx context.Context, categoryID string) ([]domain.CategoryTopic, error) {
	links, err := s.store.ListCategoryTopics(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list category topics: %w", err)
	}
	return links, nil
}

func (s *Service) DeleteCategoryTopic(ctx context.Context, id string) error {
	if err := s.store.DeleteCategoryTopic(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete category topic: %w", err)
	}
	return nil
}

// CreateAssistantCategory restricts the evaluator labels of an assistant to
// its linked categories.
func (s *Service) CreateAssistantCategory(ctx context.Context, assistantID, categoryID string) (*domain.AssistantCategory, error) {
	if assistantID == "" {
		return nil, domain.Required("assistant_id")
	}
	if categoryID == "" {
		return nil, domain.Required("category_id")
	}
	l := &domain.AssistantCategory{AssistantID: assistantID, CategoryID: categoryID}
	if err := s.store.CreateAssistantCategory(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create assistant category: %w", err)
	}
	return l, nil
}

func (s *Service) ListAssistantCategories(ctx context.Context, assistantID string) ([]domain.AssistantCategory, error) {
	links, err := s.store.ListAssistantCategories(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assistant categories: %w", err)
	}
	return links, nil
}

func (s *Service) DeleteAssistantCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteAssistantCategory(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete assistant category: %w", err)
	}
	return nil
}
