package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/adapter/agentclient"
	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// CreateAssistant registers the assistant upstream, then stores it with the
// upstream id in metadata. A failed store write deletes the upstream
// assistant again.
func (s *Service) CreateAssistant(ctx context.Context, in domain.AssistantInput) (*domain.Assistant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Required("name")
	}
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = s.config.DefaultModel
	}

	a := &domain.Assistant{
		ID:           uuid.NewString(),
		Name:         name,
		Instructions: in.Instructions,
		Model:        model,
	}

	upstreamID, err := s.agentClient.CreateAssistant(ctx, s.assistantSpec(a))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream assistant: %w", err)
	}
	a.Metadata = in.Metadata.Merge(domain.Metadata{
		domain.MetaOpenAI: domain.Object(domain.Metadata{domain.MetaAssistantID: domain.String(upstreamID)}),
	})

	if err := s.store.CreateAssistant(ctx, a); err != nil {
		if derr := s.agentClient.DeleteAssistant(context.WithoutCancel(ctx), upstreamID); derr != nil {
			s.logger.Warn("failed to roll back upstream assistant",
				zap.String("upstream_id", upstreamID), zap.Error(derr))
		}
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}

	s.logger.Info("assistant created", zap.String("assistant_id", a.ID), zap.String("upstream_id", upstreamID))
	return a, nil
}

func (s *Service) GetAssistant(ctx context.Context, id string) (*domain.Assistant, error) {
	return found(s.store.GetAssistant(ctx, id))("assistant", id)
}

func (s *Service) ListAssistants(ctx context.Context) ([]domain.Assistant, error) {
	assistants, err := s.store.ListAssistants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list assistants: %w", err)
	}
	return assistants, nil
}

// UpdateAssistant applies the non-empty fields of in. The upstream assistant
// is updated first so a rejected change leaves the row untouched.
func (s *Service) UpdateAssistant(ctx context.Context, id string, in domain.AssistantInput) (*domain.Assistant, error) {
	a, err := s.activeAssistant(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		a.Name = name
	}
	if in.Instructions != "" {
		a.Instructions = in.Instructions
	}
	if model := strings.TrimSpace(in.Model); model != "" {
		a.Model = model
	}
	if len(in.Metadata) > 0 {
		// The upstream ids are owned by the gateway.
		patch := in.Metadata.Merge(nil)
		delete(patch, domain.MetaOpenAI)
		a.Metadata = a.Metadata.Merge(patch)
	}

	if upstreamID := a.UpstreamID(); upstreamID != "" {
		if err := s.agentClient.UpdateAssistant(ctx, upstreamID, s.assistantSpec(a)); err != nil {
			return nil, fmt.Errorf("failed to update upstream assistant: %w", err)
		}
	}
	if err := s.store.UpdateAssistant(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update assistant: %w", err)
	}
	return a, nil
}

// DeleteAssistant deletes the upstream assistant and soft-deletes the row.
// Deleting an already deleted assistant is a no-op.
func (s *Service) DeleteAssistant(ctx context.Context, id string) error {
	a, err := s.GetAssistant(ctx, id)
	if err != nil {
		return err
	}
	if !a.Active() {
		return nil
	}
	if upstreamID := a.UpstreamID(); upstreamID != "" {
		if err := s.agentClient.DeleteAssistant(ctx, upstreamID); err != nil {
			return fmt.Errorf("failed to delete upstream assistant: %w", err)
		}
	}
	if err := s.store.DeleteAssistant(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete assistant: %w", err)
	}
	s.logger.Info("assistant deleted", zap.String("assistant_id", id))
	return nil
}

func (s *Service) assistantSpec(a *domain.Assistant) agentclient.AssistantSpec {
	return agentclient.AssistantSpec{
		Name:         a.Name,
		Instructions: a.Instructions,
		Model:        a.Model,
		Metadata:     map[string]string{"assistant_link_id": a.ID},
	}
}
