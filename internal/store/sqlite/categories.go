package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const categoryColumns = "uuid, name, description, created_at, updated_at"

func scanCategory(row rowScanner) (*models.Category, error) {
	var (
		c                    models.Category
		description          sql.NullString
		createdAt, updatedAt string
		err                  error
	)
	if err = row.Scan(&c.UUID, &c.Name, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.Description = ptrFromNull(description)
	if c.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, payload models.CreateCategoryPayload) (*models.Category, error) {
	p, err := store.PrepareCategory(payload)
	if err != nil {
		return nil, err
	}

	now := models.Now()
	_, err = s.q.ExecContext(ctx,
		"INSERT INTO categories (uuid, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		p.UUID, p.Name, nullablePtr(p.Description), models.FormatTime(now), models.FormatTime(now))
	if err != nil {
		s.logger.Error("Error creating category", zap.Error(err))
		return nil, apperr.Storage(fmt.Errorf("failed to insert category: %w", err))
	}

	s.logger.Info("Category created", zap.String("uuid", p.UUID), zap.String("name", p.Name))
	return &models.Category{
		UUID:        p.UUID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *Store) UpdateCategory(ctx context.Context, uuid string, payload models.UpdateCategoryPayload) (*models.Category, error) {
	p, err := store.PrepareCategoryUpdate(payload)
	if err != nil {
		return nil, err
	}

	if !p.IsEmpty() {
		var a assignments
		if p.Name != nil {
			a.set("name", *p.Name)
		}
		if p.Description != nil {
			a.set("description", nullable(*p.Description))
		}
		a.set("updated_at", models.FormatTime(models.Now()))

		if err := s.applyUpdate(ctx, "categories", &a, uuid, "Category not found"); err != nil {
			return nil, err
		}
		s.logger.Info("Category updated", zap.String("uuid", uuid))
	}

	c, err := s.GetCategory(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound("Category not found")
	}
	return c, nil
}

// DeleteCategory removes the category; foreign keys cascade to its groups
// and everything below them.
func (s *Store) DeleteCategory(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting category", zap.String("uuid", uuid))
	return s.hardDelete(ctx, "categories", uuid, "Category not found")
}

func (s *Store) GetCategory(ctx context.Context, uuid string) (*models.Category, error) {
	c, err := scanCategory(s.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM categories WHERE uuid = ?", uuid))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return c, nil
}

// ListCategories returns every category ordered by name
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.queryCategories(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY name ASC")
}

// AllCategories returns every category, oldest first
func (s *Store) AllCategories(ctx context.Context) ([]models.Category, error) {
	return s.queryCategories(ctx, "SELECT "+categoryColumns+" FROM categories ORDER BY created_at ASC, id ASC")
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]models.Category, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

// applyUpdate runs a partial UPDATE of one row by uuid
func (s *Store) applyUpdate(ctx context.Context, table string, a *assignments, uuid, notFound string) error {
	res, err := s.q.ExecContext(ctx, "UPDATE "+table+" SET "+a.clause()+" WHERE uuid = ?", append(a.args, uuid)...)
	if err != nil {
		return apperr.Storage(fmt.Errorf("failed to update %s: %w", table, err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("%s", notFound)
	}
	return nil
}

// hardDelete removes one row by uuid from table, reporting notFound when
// nothing matched. table is always a constant.
func (s *Store) hardDelete(ctx context.Context, table, uuid, notFound string) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE uuid = ?", uuid)
	if err != nil {
		return apperr.Storage(fmt.Errorf("failed to delete from %s: %w", table, err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("%s", notFound)
	}
	return nil
}
