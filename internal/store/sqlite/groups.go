package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
	"github.com/kutbudev/promptvault/internal/variables"
)

const groupColumns = "uuid, category_uuid, name, description, display_order, global_variables, created_at, updated_at"

func scanGroup(row rowScanner) (*models.Group, error) {
	var (
		g                    models.Group
		description          sql.NullString
		vars                 sql.NullString
		createdAt, updatedAt string
		err                  error
	)
	if err = row.Scan(&g.UUID, &g.CategoryUUID, &g.Name, &description, &g.DisplayOrder, &vars,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	g.Description = ptrFromNull(description)
	g.GlobalVariables = decodeVariables(vars.String)
	if g.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

// decodeVariables reads the serialized map; anything unreadable is an empty map
func decodeVariables(raw string) models.Variables {
	if raw == "" {
		return models.Variables{}
	}
	vars, err := variables.Parse(raw)
	if err != nil {
		return models.Variables{}
	}
	return models.Variables(vars)
}

func encodeVariables(v models.Variables) (string, error) {
	b, err := json.Marshal(v.Clone())
	if err != nil {
		return "", fmt.Errorf("failed to encode global variables: %w", err)
	}
	return string(b), nil
}

// CreateGroup inserts a group under an existing category. Without an
// explicit display order the group goes after its siblings.
func (s *Store) CreateGroup(ctx context.Context, payload models.CreateGroupPayload) (*models.Group, error) {
	p, err := store.PrepareGroup(payload)
	if err != nil {
		return nil, err
	}
	vars, err := encodeVariables(p.GlobalVariables)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	var group *models.Group
	err = s.withTx(ctx, func(tx *Store) error {
		parent, err := tx.GetCategory(ctx, p.CategoryUUID)
		if err != nil {
			return err
		}
		if parent == nil {
			return apperr.NotFound("Category not found")
		}

		order := 0
		if p.DisplayOrder != nil {
			order = *p.DisplayOrder
		} else if order, err = tx.nextOrder(ctx, "groups", "category_uuid", p.CategoryUUID); err != nil {
			return err
		}

		now := models.Now()
		_, err = tx.q.ExecContext(ctx, `INSERT INTO groups
			(uuid, category_uuid, name, description, display_order, global_variables, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.UUID, p.CategoryUUID, p.Name, nullablePtr(p.Description), order, vars,
			models.FormatTime(now), models.FormatTime(now))
		if err != nil {
			return apperr.Storage(fmt.Errorf("failed to insert group: %w", err))
		}

		group = &models.Group{
			UUID:            p.UUID,
			CategoryUUID:    p.CategoryUUID,
			Name:            p.Name,
			Description:     p.Description,
			DisplayOrder:    order,
			GlobalVariables: p.GlobalVariables,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Error creating group", zap.String("category_uuid", p.CategoryUUID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("Group created", zap.String("uuid", group.UUID), zap.String("name", group.Name))
	return group, nil
}

// nextOrder returns max(display_order)+1 among the rows of table whose
// parentCol equals parent, or 0 when there are none.
func (s *Store) nextOrder(ctx context.Context, table, parentCol, parent string) (int, error) {
	var count, highest int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(MAX(display_order), 0) FROM "+table+" WHERE "+parentCol+" = ?", parent).
		Scan(&count, &highest)
	if err != nil {
		return 0, apperr.Storage(fmt.Errorf("failed to compute display order: %w", err))
	}
	return store.NextDisplayOrder(highest, count > 0), nil
}

func (s *Store) UpdateGroup(ctx context.Context, uuid string, payload models.UpdateGroupPayload) (*models.Group, error) {
	p, err := store.PrepareGroupUpdate(payload)
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
		if p.DisplayOrder != nil {
			a.set("display_order", *p.DisplayOrder)
		}
		if p.GlobalVariables != nil {
			vars, err := encodeVariables(p.GlobalVariables)
			if err != nil {
				return nil, apperr.Validation("%v", err)
			}
			a.set("global_variables", vars)
		}
		a.set("updated_at", models.FormatTime(models.Now()))

		if err := s.applyUpdate(ctx, "groups", &a, uuid, "Group not found"); err != nil {
			return nil, err
		}
		s.logger.Info("Group updated", zap.String("uuid", uuid))
	}

	g, err := s.GetGroup(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, apperr.NotFound("Group not found")
	}
	return g, nil
}

func (s *Store) DeleteGroup(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting group", zap.String("uuid", uuid))
	return s.hardDelete(ctx, "groups", uuid, "Group not found")
}

func (s *Store) GetGroup(ctx context.Context, uuid string) (*models.Group, error) {
	g, err := scanGroup(s.q.QueryRowContext(ctx, "SELECT "+groupColumns+" FROM groups WHERE uuid = ?", uuid))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return g, nil
}

// ListGroups returns the groups of a category in display order
func (s *Store) ListGroups(ctx context.Context, categoryUUID string) ([]models.Group, error) {
	return s.queryGroups(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE category_uuid = ? ORDER BY display_order ASC, created_at ASC, id ASC",
		categoryUUID)
}

// AllGroups returns every group, oldest first
func (s *Store) AllGroups(ctx context.Context) ([]models.Group, error) {
	return s.queryGroups(ctx, "SELECT "+groupColumns+" FROM groups ORDER BY created_at ASC, id ASC")
}

func (s *Store) queryGroups(ctx context.Context, query string, args ...any) ([]models.Group, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	out := []models.Group{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

// ReorderGroups sets display orders in one transaction. Unknown uuids are
// ignored and siblings not listed keep their order.
func (s *Store) ReorderGroups(ctx context.Context, items []models.ReorderItem) error {
	return s.reorder(ctx, "groups", items)
}

func (s *Store) reorder(ctx context.Context, table string, items []models.ReorderItem) error {
	err := s.withTx(ctx, func(tx *Store) error {
		for _, item := range items {
			if _, err := tx.q.ExecContext(ctx,
				"UPDATE "+table+" SET display_order = ? WHERE uuid = ?", item.DisplayOrder, item.UUID); err != nil {
				return apperr.Storage(fmt.Errorf("failed to reorder %s: %w", item.UUID, err))
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Error reordering", zap.String("table", table), zap.Error(err))
		return err
	}
	s.logger.Info("Reordered", zap.String("table", table), zap.Int("count", len(items)))
	return nil
}
