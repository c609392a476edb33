package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

const assistantColumns = `id, name, instructions, model, metadata, created_at, updated_at, deleted_at`

func scanAssistant(row interface{ Scan(...any) error }) (*domain.Assistant, error) {
	var a domain.Assistant
	var deletedAt sql.NullTime
	if err := row.Scan(&a.ID, &a.Name, &a.Instructions, &a.Model, &a.Metadata, &a.CreatedAt, &a.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	a.DeletedAt = nullTime(deletedAt)
	return &a, nil
}

// CreateAssistant creates a new assistant. Model falls back to
// domain.DefaultAssistantModel.
func (s *SQLStore) CreateAssistant(ctx context.Context, a *domain.Assistant) error {
	stamp(&a.ID, &a.Timestamps)
	if a.Model == "" {
		a.Model = domain.DefaultAssistantModel
	}
	if a.Metadata == nil {
		a.Metadata = domain.Metadata{}
	}
	_, err := s.conn().exec(ctx,
		`INSERT INTO assistants (`+assistantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Instructions, a.Model, a.Metadata, a.CreatedAt, a.UpdatedAt, a.DeletedAt)
	return s.mapErr(err)
}

// GetAssistant retrieves an assistant by ID, including soft-deleted ones.
func (s *SQLStore) GetAssistant(ctx context.Context, id string) (*domain.Assistant, error) {
	a, err := scanAssistant(s.conn().queryRow(ctx,
		`SELECT `+assistantColumns+` FROM assistants WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// ListAssistants lists active assistants, oldest first.
func (s *SQLStore) ListAssistants(ctx context.Context) ([]domain.Assistant, error) {
	rows, err := s.conn().query(ctx,
		`SELECT `+assistantColumns+` FROM assistants WHERE deleted_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assistants []domain.Assistant
	for rows.Next() {
		a, err := scanAssistant(rows)
		if err != nil {
			return nil, err
		}
		assistants = append(assistants, *a)
	}
	return assistants, rows.Err()
}

// UpdateAssistant writes name, instructions, model and metadata.
func (s *SQLStore) UpdateAssistant(ctx context.Context, a *domain.Assistant) error {
	a.UpdatedAt = now()
	res, err := s.conn().exec(ctx,
		`UPDATE assistants SET name = ?, instructions = ?, model = ?, metadata = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		a.Name, a.Instructions, a.Model, a.Metadata, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "assistant", a.ID)
}

// DeleteAssistant soft-deletes an assistant. Its conversations and
// messages stay readable.
func (s *SQLStore) DeleteAssistant(ctx context.Context, id string, at time.Time) error {
	return s.conn().softDelete(ctx, "assistants", "assistant", id, at)
}

// stamp assigns an id (when empty) and creation timestamps.
func stamp(id *string, ts *domain.Timestamps) {
	if *id == "" {
		*id = newID()
	}
	t := now()
	if ts.CreatedAt.IsZero() {
		ts.CreatedAt = t
	}
	if ts.UpdatedAt.IsZero() {
		ts.UpdatedAt = ts.CreatedAt
	}
}

// requireRow turns a zero-row update into domain.ErrNotFound.
func requireRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(entity, id)
	}
	return nil
}

func (s *SQLStore) mapErr(err error) error {
	if err != nil && s.dialect.isUniqueViolation(err) {
		return &conflictError{err: err}
	}
	return err
}
