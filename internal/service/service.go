// Package service implements the assistants link use cases on top of the
// store and the hosted clients.
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/adapter/agentclient"
	"github.com/euskoog/openai-assistants-link/internal/adapter/llm"
	"github.com/euskoog/openai-assistants-link/internal/config"
	"github.com/euskoog/openai-assistants-link/internal/domain"
	"github.com/euskoog/openai-assistants-link/internal/repository"
	"github.com/euskoog/openai-assistants-link/policy"
)

type Service struct {
	store        repository.Store
	agentClient  agentclient.Client
	llmClient    llm.LLMClient
	config       *config.Config
	policyEngine *policy.Engine
	logger       *zap.Logger
	now          func() time.Time
}

func New(store repository.Store, agentClient agentclient.Client, llmClient llm.LLMClient, cfg *config.Config, policyEngine *policy.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		agentClient:  agentClient,
		llmClient:    llmClient,
		config:       cfg,
		policyEngine: policyEngine,
		logger:       logger.With(zap.String("component", "service")),
		now:          func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) activeAssistant(ctx context.Context, id string) (*domain.Assistant, error) {
	a, err := s.store.GetAssistant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get assistant: %w", err)
	}
	if a == nil || !a.Active() {
		return nil, &domain.NotFoundError{Entity: "assistant", ID: id}
	}
	return a, nil
}

func (s *Service) activeDatasource(ctx context.Context, id string) (*domain.Datasource, error) {
	d, err := s.store.GetDatasource(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get datasource: %w", err)
	}
	if d == nil || !d.Active() {
		return nil, &domain.NotFoundError{Entity: "datasource", ID: id}
	}
	return d, nil
}

// found converts the store's (nil, nil) miss into a NotFoundError. It is
// called as found(s.store.GetX(ctx, id))("x", id).
func found[T any](v *T, err error) func(entity, id string) (*T, error) {
	return func(entity, id string) (*T, error) {
		if err != nil {
			return nil, fmt.Errorf("failed to get %s: %w", entity, err)
		}
		if v == nil {
			return nil, &domain.NotFoundError{Entity: entity, ID: id}
		}
		return v, nil
	}
}
