package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/adapter/agentclient"
	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/internal/metrics"
)

// Chat runs one turn against the hosted assistant and records the exchange.
//
// Nothing is written until the upstream reply arrives; the user message, the
// reply and a new conversation are then stored in one transaction. A thread
// created for a new conversation is deleted again if the turn fails. The
// reply is evaluated inline; evaluation failures never fail the turn.
func (s *Service) Chat(ctx context.Context, assistantID string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	content := strings.TrimSpace(req.Message.Content)
	if content == "" {
		return nil, domain.Required("message.content")
	}

	a, err := s.activeAssistant(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	upstreamID := a.UpstreamID()
	if upstreamID == "" {
		return nil, &domain.ReferenceError{Entity: "upstream assistant", ID: a.ID}
	}

	datasources, err := s.store.ListDatasourcesForAssistant(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	tools, err := s.tools(ctx, datasources)
	if err != nil {
		return nil, err
	}

	var (
		conv    *domain.Conversation
		newConv *domain.Conversation
	)
	if req.ConversationID != "" {
		conv, err = s.store.GetConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		if conv == nil || !conv.Active() || conv.AssistantID != a.ID {
			return nil, &domain.NotFoundError{Entity: "conversation", ID: req.ConversationID}
		}
		if conv.ThreadID() == "" {
			return nil, &domain.ReferenceError{Entity: "upstream thread", ID: conv.ID}
		}
	} else {
		id := uuid.NewString()
		threadID, err := s.agentClient.CreateThread(ctx, map[string]string{"conversation_id": id})
		if err != nil {
			metrics.ChatTurn("upstream_error")
			return nil, fmt.Errorf("failed to create thread: %w", err)
		}
		newConv = &domain.Conversation{
			ID:          id,
			AssistantID: a.ID,
			Metadata: domain.Metadata{
				domain.MetaOpenAI: domain.Object(domain.Metadata{domain.MetaThreadID: domain.String(threadID)}),
			},
		}
		conv = newConv
	}
	threadID := conv.ThreadID()

	turnCtx, cancel := context.WithTimeout(ctx, s.config.AgentTimeout())
	defer cancel()

	sentAt := s.now()
	result, err := s.agentClient.RunTurn(turnCtx, agentclient.TurnRequest{
		ThreadID:    threadID,
		AssistantID: upstreamID,
		Content:     content,
		Tools:       tools,
	})
	if err != nil {
		s.discardThread(ctx, newConv)
		metrics.ChatTurn("upstream_error")
		s.logger.Warn("chat turn failed",
			zap.String("assistant_id", a.ID), zap.String("thread_id", threadID), zap.Error(err))
		return nil, fmt.Errorf("failed to run chat turn: %w", err)
	}
	repliedAt := s.now()
	if !repliedAt.After(sentAt) {
		repliedAt = sentAt.Add(time.Microsecond)
	}

	query := &domain.Message{
		Role:           domain.RoleUser,
		Content:        content,
		Timestamp:      sentAt,
		ConversationID: conv.ID,
		Metadata:       req.Message.Metadata.Merge(openAIMeta(domain.MetaMessageID, result.UserMessageID)),
	}
	reply := &domain.Message{
		Role:           domain.RoleAssistant,
		Content:        result.Reply,
		Timestamp:      repliedAt,
		ConversationID: conv.ID,
		Metadata: openAIMeta(domain.MetaMessageID, result.MessageID).
			Merge(openAIMeta(domain.MetaRunID, result.RunID)),
	}
	if err := s.store.AppendExchange(ctx, newConv, query, reply); err != nil {
		s.discardThread(ctx, newConv)
		metrics.ChatTurn("error")
		return nil, fmt.Errorf("failed to record chat turn: %w", err)
	}
	metrics.ChatTurn("ok")

	var eval *domain.Evaluation
	if s.config.EvaluatorEnabled {
		eval = s.evaluate(ctx, a, query, reply)
	}

	return &domain.ChatResponse{
		Message:        *reply,
		ConversationID: conv.ID,
		Evaluation:     eval,
	}, nil
}

// discardThread deletes the upstream thread of a conversation that was never
// stored.
func (s *Service) discardThread(ctx context.Context, conv *domain.Conversation) {
	if conv == nil {
		return
	}
	threadID := conv.ThreadID()
	if err := s.agentClient.DeleteThread(context.WithoutCancel(ctx), threadID); err != nil {
		s.logger.Warn("failed to delete orphan thread", zap.String("thread_id", threadID), zap.Error(err))
	}
}

func openAIMeta(key, value string) domain.Metadata {
	if value == "" {
		return domain.Metadata{}
	}
	return domain.Metadata{
		domain.MetaOpenAI: domain.Object(domain.Metadata{key: domain.String(value)}),
	}
}
