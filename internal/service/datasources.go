package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

// CreateDocument uploads the file to the hosted file store and records a
// DOCUMENT datasource pointing at it.
func (s *Service) CreateDocument(ctx context.Context, up domain.DocumentUpload) (*domain.Datasource, error) {
	if err := validateUpload(&up); err != nil {
		return nil, err
	}

	file, err := s.agentClient.UploadFile(ctx, up.Filename, up.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	d := &domain.Datasource{
		Name:        up.Name,
		Description: up.Description,
		Type:        domain.DatasourceTypeDocument,
		Metadata:    documentMetadata(up, file.ID, file.Bytes),
	}
	if err := s.store.CreateDatasource(ctx, d); err != nil {
		s.deleteFileQuietly(ctx, file.ID)
		return nil, fmt.Errorf("failed to create datasource: %w", err)
	}

	s.logger.Info("document uploaded",
		zap.String("datasource_id", d.ID), zap.String("file_id", file.ID), zap.Int("bytes", file.Bytes))
	return d, nil
}

// UpdateDocument replaces the file behind a DOCUMENT datasource. Assistants
// linked to it are moved over to the new file.
func (s *Service) UpdateDocument(ctx context.Context, id string, up domain.DocumentUpload) (*domain.Datasource, error) {
	d, err := s.activeDatasource(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Type != domain.DatasourceTypeDocument {
		return nil, &domain.ValidationError{Field: "type", Reason: "datasource is not a document"}
	}
	if up.Name == "" {
		up.Name = d.Name
	}
	if up.Description == "" {
		up.Description = d.Description
	}
	if err := validateUpload(&up); err != nil {
		return nil, err
	}

	file, err := s.agentClient.UploadFile(ctx, up.Filename, up.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload document: %w", err)
	}

	oldFileID := d.FileID()
	d.Name = up.Name
	d.Description = up.Description
	d.Metadata = d.Metadata.Merge(documentMetadata(up, file.ID, file.Bytes))
	if err := s.store.UpdateDatasource(ctx, d); err != nil {
		s.deleteFileQuietly(ctx, file.ID)
		return nil, fmt.Errorf("failed to update datasource: %w", err)
	}

	links, err := s.store.ListAssistantDatasources(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list assistant datasources: %w", err)
	}
	for _, l := range links {
		if l.DatasourceID != d.ID {
			continue
		}
		a, err := s.activeAssistant(ctx, l.AssistantID)
		if err != nil {
			continue
		}
		if oldFileID != "" {
			s.detachQuietly(ctx, a, oldFileID)
		}
		if err := s.attachDatasource(ctx, a, d); err != nil {
			s.logger.Warn("failed to move assistant to the new document",
				zap.String("assistant_id", a.ID), zap.String("datasource_id", d.ID), zap.Error(err))
		}
	}

	if oldFileID != "" {
		s.deleteFileQuietly(ctx, oldFileID)
	}
	return d, nil
}

// CreateDatasource records a non-document datasource.
func (s *Service) CreateDatasource(ctx context.Context, in domain.DatasourceInput) (*domain.Datasource, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Required("name")
	}
	switch {
	case in.Type == "":
		return nil, domain.Required("type")
	case !in.Type.Valid():
		return nil, &domain.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown datasource type %q", in.Type)}
	case in.Type == domain.DatasourceTypeDocument:
		return nil, &domain.ValidationError{Field: "type", Reason: "documents are created by upload"}
	}

	d := &domain.Datasource{Name: name, Description: in.Description, Type: in.Type, Metadata: in.Metadata}
	if err := s.store.CreateDatasource(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to create datasource: %w", err)
	}
	return d, nil
}

func (s *Service) GetDatasource(ctx context.Context, id string) (*domain.Datasource, error) {
	return found(s.store.GetDatasource(ctx, id))("datasource", id)
}

func (s *Service) ListDatasources(ctx context.Context) ([]domain.Datasource, error) {
	datasources, err := s.store.ListDatasources(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasources: %w", err)
	}
	return datasources, nil
}

// UpdateDatasource writes name and description. Metadata may only be
// replaced on non-document datasources.
func (s *Service) UpdateDatasource(ctx context.Context, id string, in domain.DatasourceInput) (*domain.Datasource, error) {
	d, err := s.activeDatasource(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		d.Name = name
	}
	if in.Description != "" {
		d.Description = in.Description
	}
	if in.Metadata != nil {
		if d.Type == domain.DatasourceTypeDocument {
			return nil, &domain.ValidationError{Field: "metadata", Reason: "document metadata is managed by upload"}
		}
		d.Metadata = in.Metadata
	}
	if err := s.store.UpdateDatasource(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to update datasource: %w", err)
	}
	return d, nil
}

// DeleteDatasource deletes the hosted file of a document and soft-deletes
// the row. Deleting an already deleted datasource is a no-op.
func (s *Service) DeleteDatasource(ctx context.Context, id string) error {
	d, err := s.GetDatasource(ctx, id)
	if err != nil {
		return err
	}
	if !d.Active() {
		return nil
	}
	if fileID := d.FileID(); fileID != "" {
		if err := s.agentClient.DeleteFile(ctx, fileID); err != nil {
			return fmt.Errorf("failed to delete upstream file: %w", err)
		}
	}
	if err := s.store.DeleteDatasource(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete datasource: %w", err)
	}
	return nil
}

func validateUpload(up *domain.DocumentUpload) error {
	up.Filename = filepath.Base(strings.TrimSpace(up.Filename))
	if up.Filename == "" || up.Filename == "." || up.Filename == string(filepath.Separator) {
		return domain.Required("file")
	}
	if len(up.Data) == 0 {
		return &domain.ValidationError{Field: "file", Reason: "is empty"}
	}
	up.Name = strings.TrimSpace(up.Name)
	if up.Name == "" {
		up.Name = up.Filename
	}
	if up.ContentType == "" {
		up.ContentType = "application/octet-stream"
	}
	return nil
}

func documentMetadata(up domain.DocumentUpload, fileID string, bytes int) domain.Metadata {
	return domain.Metadata{
		domain.MetaFilename:    domain.String(up.Filename),
		domain.MetaContentType: domain.String(up.ContentType),
		domain.MetaOpenAI: domain.Object(domain.Metadata{
			domain.MetaFileID:    domain.String(fileID),
			domain.MetaFileBytes: domain.Number(float64(bytes)),
		}),
	}
}

func (s *Service) deleteFileQuietly(ctx context.Context, fileID string) {
	if err := s.agentClient.DeleteFile(context.WithoutCancel(ctx), fileID); err != nil {
		s.logger.Warn("failed to delete upstream file", zap.String("file_id", fileID), zap.Error(err))
	}
}
