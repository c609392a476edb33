package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/euskoog/openai-assistants-link/internal/domain"
)

const categoryColumns = `id, name, description, type, created_at, updated_at, deleted_at`

func scanCategory(row interface{ Scan(...any) error }) (*domain.Category, error) {
	var c domain.Category
	var description sql.NullString
	var deletedAt sql.NullTime
	if err := row.Scan(&c.ID, &c.Name, &description, &c.Type, &c.CreatedAt, &c.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	c.Description = description.String
	c.DeletedAt = nullTime(deletedAt)
	return &c, nil
}

func collectCategories(rows *sql.Rows) ([]domain.Category, error) {
	defer rows.Close()
	var categories []domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

// CreateCategory creates a new category. Type falls back to CUSTOM.
func (s *SQLStore) CreateCategory(ctx context.Context, c *domain.Category) error {
	stamp(&c.ID, &c.Timestamps)
	if c.Type == "" {
		c.Type = domain.CategoryTypeCustom
	}
	_, err := s.conn().exec(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, nullString(c.Description), c.Type, c.CreatedAt, c.UpdatedAt, c.DeletedAt)
	return s.mapErr(err)
}

// GetCategory retrieves a category by ID.
func (s *SQLStore) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(s.conn().queryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetCategoryByName finds an active category by exact name. An empty typ
// matches any type.
func (s *SQLStore) GetCategoryByName(ctx context.Context, name string, typ domain.CategoryType) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE name = ? AND deleted_at IS NULL`
	args := []any{name}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, typ)
	}
	query += ` ORDER BY created_at LIMIT 1`

	c, err := scanCategory(s.conn().queryRow(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListCategories lists active categories, optionally restricted to one type.
func (s *SQLStore) ListCategories(ctx context.Context, typ domain.CategoryType) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE deleted_at IS NULL`
	var args []any
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, typ)
	}
	query += ` ORDER BY name`

	rows, err := s.conn().query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

// UpdateCategory writes name and description.
func (s *SQLStore) UpdateCategory(ctx context.Context, c *domain.Category) error {
	c.UpdatedAt = now()
	res, err := s.conn().exec(ctx,
		`UPDATE categories SET name = ?, description = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		c.Name, nullString(c.Description), c.UpdatedAt, c.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "category", c.ID)
}

// DeleteCategory soft-deletes a category.
func (s *SQLStore) DeleteCategory(ctx context.Context, id string, at time.Time) error {
	return s.conn().softDelete(ctx, "categories", "category", id, at)
}

// ListCategoriesForAssistant returns the active categories joined to the
// assistant through active links.
func (s *SQLStore) ListCategoriesForAssistant(ctx context.Context, assistantID string) ([]domain.Category, error) {
	rows, err := s.conn().query(ctx,
		`SELECT c.id, c.name, c.description, c.type, c.created_at, c.updated_at, c.deleted_at
		 FROM categories c
		 WHERE c.deleted_at IS NULL AND c.id IN (
		   SELECT category_id FROM assistant_categories WHERE assistant_id = ? AND deleted_at IS NULL)
		 ORDER BY c.name`, assistantID)
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}
