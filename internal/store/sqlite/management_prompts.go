package sqlite

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const managementPromptColumns = "uuid, group_uuid, name, content, display_order, created_at, updated_at"

func scanManagementPrompt(row rowScanner) (*models.ManagementPrompt, error) {
	var (
		m                    models.ManagementPrompt
		createdAt, updatedAt string
		err                  error
	)
	if err = row.Scan(&m.UUID, &m.GroupUUID, &m.Name, &m.Content, &m.DisplayOrder, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) CreateManagementPrompt(ctx context.Context, payload models.CreateManagementPromptPayload) (*models.ManagementPrompt, error) {
	p, err := store.PrepareManagementPrompt(payload)
	if err != nil {
		return nil, err
	}

	var created *models.ManagementPrompt
	err = s.withTx(ctx, func(tx *Store) error {
		group, err := tx.GetGroup(ctx, p.GroupUUID)
		if err != nil {
			return err
		}
		if group == nil {
			return apperr.NotFound("Group not found")
		}

		order := 0
		if p.DisplayOrder != nil {
			order = *p.DisplayOrder
		} else if order, err = tx.nextOrder(ctx, "management_prompts", "group_uuid", p.GroupUUID); err != nil {
			return err
		}

		now := models.Now()
		_, err = tx.q.ExecContext(ctx, `INSERT INTO management_prompts
			(uuid, group_uuid, name, content, display_order, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.UUID, p.GroupUUID, p.Name, p.Content, order, models.FormatTime(now), models.FormatTime(now))
		if err != nil {
			return apperr.Storage(fmt.Errorf("failed to insert management prompt: %w", err))
		}

		created = &models.ManagementPrompt{
			UUID:         p.UUID,
			GroupUUID:    p.GroupUUID,
			Name:         p.Name,
			Content:      p.Content,
			DisplayOrder: order,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Error creating management prompt", zap.String("group_uuid", p.GroupUUID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("ManagementPrompt created", zap.String("uuid", created.UUID), zap.String("name", created.Name))
	return created, nil
}

// UpdateManagementPrompt applies the present fields. Changing group_uuid
// moves the prompt and requires the target group to exist.
func (s *Store) UpdateManagementPrompt(ctx context.Context, uuid string, payload models.UpdateManagementPromptPayload) (*models.ManagementPrompt, error) {
	p, err := store.PrepareManagementPromptUpdate(payload)
	if err != nil {
		return nil, err
	}

	if !p.IsEmpty() {
		err = s.withTx(ctx, func(tx *Store) error {
			var a assignments
			if p.GroupUUID != nil {
				target, err := tx.GetGroup(ctx, *p.GroupUUID)
				if err != nil {
					return err
				}
				if target == nil {
					return apperr.NotFound("Target group not found")
				}
				a.set("group_uuid", *p.GroupUUID)
			}
			if p.Name != nil {
				a.set("name", *p.Name)
			}
			if p.Content != nil {
				a.set("content", *p.Content)
			}
			if p.DisplayOrder != nil {
				a.set("display_order", *p.DisplayOrder)
			}
			a.set("updated_at", models.FormatTime(models.Now()))
			return tx.applyUpdate(ctx, "management_prompts", &a, uuid, "ManagementPrompt not found")
		})
		if err != nil {
			return nil, err
		}
		s.logger.Info("ManagementPrompt updated", zap.String("uuid", uuid))
	}

	m, err := s.GetManagementPrompt(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotFound("ManagementPrompt not found")
	}
	return m, nil
}

func (s *Store) DeleteManagementPrompt(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting management prompt", zap.String("uuid", uuid))
	return s.hardDelete(ctx, "management_prompts", uuid, "ManagementPrompt not found")
}

func (s *Store) GetManagementPrompt(ctx context.Context, uuid string) (*models.ManagementPrompt, error) {
	m, err := scanManagementPrompt(s.q.QueryRowContext(ctx,
		"SELECT "+managementPromptColumns+" FROM management_prompts WHERE uuid = ?", uuid))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return m, nil
}

// ListManagementPrompts returns the prompts of a group in display order
func (s *Store) ListManagementPrompts(ctx context.Context, groupUUID string) ([]models.ManagementPrompt, error) {
	return s.queryManagementPrompts(ctx,
		"SELECT "+managementPromptColumns+" FROM management_prompts WHERE group_uuid = ? ORDER BY display_order ASC, created_at ASC, id ASC",
		groupUUID)
}

func (s *Store) AllManagementPrompts(ctx context.Context) ([]models.ManagementPrompt, error) {
	return s.queryManagementPrompts(ctx,
		"SELECT "+managementPromptColumns+" FROM management_prompts ORDER BY created_at ASC, id ASC")
}

func (s *Store) queryManagementPrompts(ctx context.Context, query string, args ...any) ([]models.ManagementPrompt, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	out := []models.ManagementPrompt{}
	for rows.Next() {
		m, err := scanManagementPrompt(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

func (s *Store) ReorderManagementPrompts(ctx context.Context, items []models.ReorderItem) error {
	return s.reorder(ctx, "management_prompts", items)
}
