package service

import (
	"context"
	"fmt"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// CategoriesForAssistants lists the categories linked to the assistants plus
// every DEFAULT category.
func (s *Service) CategoriesForAssistants(ctx context.Context, assistantIDs []string) ([]domain.AssistantCategoryRow, error) {
	rows, err := s.store.CategoriesForAssistants(ctx, assistantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	return rows, nil
}

// TopicCounts aggregates categorized messages per assistant, category and
// topic. No ids means every assistant.
func (s *Service) TopicCounts(ctx context.Context, assistantIDs []string) ([]domain.TopicCount, error) {
	counts, err := s.store.TopicCounts(ctx, assistantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to count topics: %w", err)
	}
	return counts, nil
}

// TopicMessages lists the messages labelled with a category and topic.
func (s *Service) TopicMessages(ctx context.Context, q domain.TopicMessageQuery) ([]domain.TopicMessage, error) {
	if q.TopicID == "" {
		return nil, domain.Required("topic_id")
	}
	if q.CategoryID == "" {
		return nil, domain.Required("category_id")
	}
	for _, t := range q.AnswerTypes {
		if _, ok := domain.ParseClassification(string(t)); !ok {
			return nil, &domain.ValidationError{Field: "answer_types", Reason: fmt.Sprintf("unknown classification %q", t)}
		}
	}
	messages, err := s.store.TopicMessages(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic messages: %w", err)
	}
	return messages, nil
}
