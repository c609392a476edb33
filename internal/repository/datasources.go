package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

const datasourceColumns = `id, name, description, type, metadata, created_at, updated_at, deleted_at`

func scanDatasource(row interface{ Scan(...any) error }) (*domain.Datasource, error) {
	var d domain.Datasource
	var description sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(&d.ID, &d.Name, &description, &d.Type, &d.Metadata, &d.CreatedAt, &d.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	d.Description = description.String
	d.DeletedAt = nullTime(deletedAt)
	return &d, nil
}

func collectDatasources(rows *sql.Rows) ([]domain.Datasource, error) {
	defer rows.Close()
	var datasources []domain.Datasource
	for rows.Next() {
		d, err := scanDatasource(rows)
		if err != nil {
			return nil, err
		}
		datasources = append(datasources, *d)
	}
	return datasources, rows.Err()
}

// CreateDatasource creates a new datasource. Type falls back to DOCUMENT.
func (s *SQLStore) CreateDatasource(ctx context.Context, d *domain.Datasource) error {
	stamp(&d.ID, &d.Timestamps)
	if d.Type == "" {
		d.Type = domain.DatasourceTypeDocument
	}
	if d.Metadata == nil {
		d.Metadata = domain.Metadata{}
	}
	_, err := s.conn().exec(ctx,
		`INSERT INTO datasources (`+datasourceColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, nullString(d.Description), d.Type, d.Metadata, d.CreatedAt, d.UpdatedAt, d.DeletedAt)
	return s.mapErr(err)
}

// GetDatasource retrieves a datasource by ID.
func (s *SQLStore) GetDatasource(ctx context.Context, id string) (*domain.Datasource, error) {
	d, err := scanDatasource(s.conn().queryRow(ctx,
		`SELECT `+datasourceColumns+` FROM datasources WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// ListDatasources lists active datasources, newest first.
func (s *SQLStore) ListDatasources(ctx context.Context) ([]domain.Datasource, error) {
	rows, err := s.conn().query(ctx,
		`SELECT `+datasourceColumns+` FROM datasources WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectDatasources(rows)
}

// UpdateDatasource writes name, description and metadata.
func (s *SQLStore) UpdateDatasource(ctx context.Context, d *domain.Datasource) error {
	d.UpdatedAt = now()
	res, err := s.conn().exec(ctx,
		`UPDATE datasources SET name = ?, description = ?, metadata = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		d.Name, nullString(d.Description), d.Metadata, d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "datasource", d.ID)
}

// DeleteDatasource soft-deletes a datasource.
func (s *SQLStore) DeleteDatasource(ctx context.Context, id string, at time.Time) error {
	return s.conn().softDelete(ctx, "datasources", "datasource", id, at)
}

// ListDatasourcesForAssistant returns the active datasources joined to the
// assistant through active links.
func (s *SQLStore) ListDatasourcesForAssistant(ctx context.Context, assistantID string) ([]domain.Datasource, error) {
	rows, err := s.conn().query(ctx,
		`SELECT d.id, d.name, d.description, d.type, d.metadata, d.created_at, d.updated_at, d.deleted_at
		 FROM datasources d
		 WHERE d.deleted_at IS NULL AND d.id IN (
		   SELECT datasource_id FROM assistant_datasources WHERE assistant_id = ? AND deleted_at IS NULL)
		 ORDER BY d.created_at`, assistantID)
	if err != nil {
		return nil, err
	}
	return collectDatasources(rows)
}
