package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/adapter/agentclient"
	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// CreateAssistantDatasource links a datasource to an assistant and makes it
// available upstream: documents are attached to the assistant's vector store
// or code interpreter, and the tool set is recomputed by the policy.
// A failed upstream update removes the link again.
func (s *Service) CreateAssistantDatasource(ctx context.Context, assistantID, datasourceID string) (*domain.AssistantDatasource, error) {
	if assistantID == "" {
		return nil, domain.Required("assistant_id")
	}
	if datasourceID == "" {
		return nil, domain.Required("datasource_id")
	}

	l := &domain.AssistantDatasource{AssistantID: assistantID, DatasourceID: datasourceID}
	if err := s.store.CreateAssistantDatasource(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create assistant datasource: %w", err)
	}

	a, err := s.activeAssistant(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	d, err := s.activeDatasource(ctx, datasourceID)
	if err != nil {
		return nil, err
	}
	if err := s.attachDatasource(ctx, a, d); err != nil {
		if derr := s.store.DeleteAssistantDatasource(context.WithoutCancel(ctx), l.ID, s.now()); derr != nil {
			s.logger.Error("failed to roll back assistant datasource", zap.String("link_id", l.ID), zap.Error(derr))
		}
		return nil, err
	}
	l.Datasource = d
	return l, nil
}

// ListAssistantDatasources lists the active links of an assistant with their
// datasources.
func (s *Service) ListAssistantDatasources(ctx context.Context, assistantID string) ([]domain.AssistantDatasource, error) {
	if _, err := s.GetAssistant(ctx, assistantID); err != nil {
		return nil, err
	}
	links, err := s.store.ListAssistantDatasources(ctx, assistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assistant datasources: %w", err)
	}
	return links, nil
}

// DeleteAssistantDatasource removes the link. Detaching the file upstream
// and refreshing the tool set are best-effort.
func (s *Service) DeleteAssistantDatasource(ctx context.Context, id string) error {
	l, err := found(s.store.GetAssistantDatasource(ctx, id))("assistant datasource", id)
	if err != nil {
		return err
	}
	if !l.Active() {
		return nil
	}
	if err := s.store.DeleteAssistantDatasource(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete assistant datasource: %w", err)
	}

	a, err := s.activeAssistant(ctx, l.AssistantID)
	if err != nil {
		return nil
	}
	if d, err := s.store.GetDatasource(ctx, l.DatasourceID); err == nil && d != nil {
		if fileID := d.FileID(); fileID != "" && !codeInterpreterFile(d) {
			s.detachQuietly(ctx, a, fileID)
		}
	}
	if err := s.syncResources(ctx, a); err != nil {
		s.logger.Warn("failed to refresh assistant tools", zap.String("assistant_id", a.ID), zap.Error(err))
	}
	return nil
}

func (s *Service) attachDatasource(ctx context.Context, a *domain.Assistant, d *domain.Datasource) error {
	if a.UpstreamID() == "" {
		return nil
	}
	if fileID := d.FileID(); fileID != "" && !codeInterpreterFile(d) {
		vs, err := s.ensureVectorStore(ctx, a)
		if err != nil {
			return err
		}
		if err := s.agentClient.AttachFile(ctx, vs, fileID); err != nil {
			return fmt.Errorf("failed to attach document: %w", err)
		}
	}
	return s.syncResources(ctx, a)
}

// syncResources pushes the tools and files of every datasource linked to
// the assistant.
func (s *Service) syncResources(ctx context.Context, a *domain.Assistant) error {
	upstreamID := a.UpstreamID()
	if upstreamID == "" {
		return nil
	}
	datasources, err := s.store.ListDatasourcesForAssistant(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("failed to list datasources: %w", err)
	}
	tools, err := s.tools(ctx, datasources)
	if err != nil {
		return err
	}

	res := agentclient.Resources{Tools: tools}
	if vs := vectorStoreID(a); vs != "" {
		res.VectorStoreIDs = []string{vs}
	}
	for i := range datasources {
		if fileID := datasources[i].FileID(); fileID != "" && codeInterpreterFile(&datasources[i]) {
			res.CodeFileIDs = append(res.CodeFileIDs, fileID)
		}
	}
	if err := s.agentClient.SetResources(ctx, upstreamID, res); err != nil {
		return fmt.Errorf("failed to update assistant tools: %w", err)
	}
	return nil
}

func (s *Service) ensureVectorStore(ctx context.Context, a *domain.Assistant) (string, error) {
	if vs := vectorStoreID(a); vs != "" {
		return vs, nil
	}
	vs, err := s.agentClient.CreateVectorStore(ctx, "vector-store-"+a.ID)
	if err != nil {
		return "", fmt.Errorf("failed to create vector store: %w", err)
	}
	a.Metadata = a.Metadata.Merge(domain.Metadata{
		domain.MetaOpenAI: domain.Object(domain.Metadata{domain.MetaVectorStoreID: domain.String(vs)}),
	})
	if err := s.store.UpdateAssistant(ctx, a); err != nil {
		return "", fmt.Errorf("failed to record vector store: %w", err)
	}
	return vs, nil
}

func (s *Service) detachQuietly(ctx context.Context, a *domain.Assistant, fileID string) {
	vs := vectorStoreID(a)
	if vs == "" {
		return
	}
	if err := s.agentClient.DetachFile(ctx, vs, fileID); err != nil {
		s.logger.Warn("failed to detach document",
			zap.String("assistant_id", a.ID), zap.String("file_id", fileID), zap.Error(err))
	}
}

func (s *Service) tools(ctx context.Context, datasources []domain.Datasource) ([]string, error) {
	if s.policyEngine == nil || len(datasources) == 0 {
		return nil, nil
	}
	tools, err := s.policyEngine.Tools(ctx, datasources)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate tool policy: %w", err)
	}
	return tools, nil
}

func vectorStoreID(a *domain.Assistant) string {
	return a.Metadata.Get(domain.MetaOpenAI, domain.MetaVectorStoreID).Str()
}

// codeInterpreterFile reports whether the document is served through the
// code interpreter instead of file search.
func codeInterpreterFile(d *domain.Datasource) bool {
	return strings.EqualFold(d.ContentType(), "text/csv")
}
