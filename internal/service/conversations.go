package service

import (
	"context"
	"fmt"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// GetConversation returns the conversation with its messages and assistant.
// Soft-deleted conversations and assistants stay readable.
func (s *Service) GetConversation(ctx context.Context, id string) (*domain.ConversationDetail, error) {
	conv, err := found(s.store.GetConversation(ctx, id))("conversation", id)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	conv.Messages = messages

	a, err := s.store.GetAssistant(ctx, conv.AssistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assistant: %w", err)
	}
	return &domain.ConversationDetail{Conversation: *conv, Assistant: a}, nil
}

// ListConversations lists the active conversations of an assistant, newest
// first.
func (s *Service) ListConversations(ctx context.Context, assistantID string) ([]domain.Conversation, error) {
	if _, err := s.GetAssistant(ctx, assistantID); err != nil {
		return nil, err
	}
	conversations, err := s.store.ListConversations(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// ListMessages lists the messages of a conversation in timestamp order.
func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	if _, err := found(s.store.GetConversation(ctx, conversationID))("conversation", conversationID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *Service) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	return found(s.store.GetMessage(ctx, id))("message", id)
}
