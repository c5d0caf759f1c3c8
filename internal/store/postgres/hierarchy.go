package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

// load returns the model for uuid, or NotFound with notFound
func load[T any, R interface{ model() T }](db *gorm.DB, uuid, notFound string) (*T, error) {
	rec, err := first[R](db, uuid)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("%s", notFound)
	}
	m := (*rec).model()
	return &m, nil
}

// lookup is load without the NotFound error
func lookup[T any, R interface{ model() T }](db *gorm.DB, uuid string) (*T, error) {
	rec, err := first[R](db, uuid)
	if err != nil || rec == nil {
		return nil, err
	}
	m := (*rec).model()
	return &m, nil
}

// Categories

func (s *Store) CreateCategory(ctx context.Context, payload models.CreateCategoryPayload) (*models.Category, error) {
	p, err := store.PrepareCategory(payload)
	if err != nil {
		return nil, err
	}

	now := models.Now()
	rec := categoryRecord{
		UUID:        p.UUID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.with(ctx).Create(&rec).Error; err != nil {
		s.logger.Error("Error creating category", zap.Error(err))
		return nil, classify(err)
	}

	c := rec.model()
	s.logger.Info("Category created", zap.String("uuid", c.UUID), zap.String("name", c.Name))
	return &c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, uuid string, payload models.UpdateCategoryPayload) (*models.Category, error) {
	p, err := store.PrepareCategoryUpdate(payload)
	if err != nil {
		return nil, err
	}

	db := s.with(ctx)
	if !p.IsEmpty() {
		fields := map[string]any{}
		if p.Name != nil {
			fields["name"] = *p.Name
		}
		if p.Description != nil {
			fields["description"] = nullable(*p.Description)
		}
		if err := updateOne(db, &categoryRecord{}, uuid, fields, "Category not found"); err != nil {
			return nil, err
		}
	}
	return load[models.Category, categoryRecord](db, uuid, "Category not found")
}

// DeleteCategory relies on the foreign keys to cascade to children
func (s *Store) DeleteCategory(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting category", zap.String("uuid", uuid))
	return deleteOne(s.with(ctx), &categoryRecord{}, uuid, "Category not found")
}

func (s *Store) GetCategory(ctx context.Context, uuid string) (*models.Category, error) {
	return lookup[models.Category, categoryRecord](s.with(ctx), uuid)
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var recs []categoryRecord
	if err := s.with(ctx).Order("name ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, classify(err)
	}
	return convert[models.Category](recs), nil
}

func (s *Store) AllCategories(ctx context.Context) ([]models.Category, error) {
	var recs []categoryRecord
	if err := s.with(ctx).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, classify(err)
	}
	return convert[models.Category](recs), nil
}

// Groups

func (s *Store) CreateGroup(ctx context.Context, payload models.CreateGroupPayload) (*models.Group, error) {
	p, err := store.PrepareGroup(payload)
	if err != nil {
		return nil, err
	}

	var rec groupRecord
	err = s.transaction(ctx, func(tx *Store) error {
		if _, err := load[models.Category, categoryRecord](tx.db, p.CategoryUUID, "Category not found"); err != nil {
			return err
		}

		order := 0
		if p.DisplayOrder != nil {
			order = *p.DisplayOrder
		} else if order, err = nextOrder(tx.db, &groupRecord{}, "category_uuid", p.CategoryUUID); err != nil {
			return err
		}

		now := models.Now()
		rec = groupRecord{
			UUID:            p.UUID,
			CategoryUUID:    p.CategoryUUID,
			Name:            p.Name,
			Description:     p.Description,
			DisplayOrder:    order,
			GlobalVariables: variablesToJSON(p.GlobalVariables),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return classify(tx.db.Create(&rec).Error)
	})
	if err != nil {
		s.logger.Error("Error creating group", zap.String("category_uuid", p.CategoryUUID), zap.Error(err))
		return nil, err
	}

	g := rec.model()
	s.logger.Info("Group created", zap.String("uuid", g.UUID), zap.String("name", g.Name))
	return &g, nil
}

func (s *Store) UpdateGroup(ctx context.Context, uuid string, payload models.UpdateGroupPayload) (*models.Group, error) {
	p, err := store.PrepareGroupUpdate(payload)
	if err != nil {
		return nil, err
	}

	db := s.with(ctx)
	if !p.IsEmpty() {
		fields := map[string]any{}
		if p.Name != nil {
			fields["name"] = *p.Name
		}
		if p.Description != nil {
			fields["description"] = nullable(*p.Description)
		}
		if p.DisplayOrder != nil {
			fields["display_order"] = *p.DisplayOrder
		}
		if p.GlobalVariables != nil {
			fields["global_variables"] = variablesToJSON(p.GlobalVariables)
		}
		if err := updateOne(db, &groupRecord{}, uuid, fields, "Group not found"); err != nil {
			return nil, err
		}
	}
	return load[models.Group, groupRecord](db, uuid, "Group not found")
}

func (s *Store) DeleteGroup(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting group", zap.String("uuid", uuid))
	return deleteOne(s.with(ctx), &groupRecord{}, uuid, "Group not found")
}

func (s *Store) GetGroup(ctx context.Context, uuid string) (*models.Group, error) {
	return lookup[models.Group, groupRecord](s.with(ctx), uuid)
}

func (s *Store) ListGroups(ctx context.Context, categoryUUID string) ([]models.Group, error) {
	var recs []groupRecord
	err := s.with(ctx).
		Where("category_uuid = ?", categoryUUID).
		Order("display_order ASC").Order("created_at ASC").Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, classify(err)
	}
	return convert[models.Group](recs), nil
}

func (s *Store) AllGroups(ctx context.Context) ([]models.Group, error) {
	var recs []groupRecord
	if err := s.with(ctx).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, classify(err)
	}
	return convert[models.Group](recs), nil
}

func (s *Store) ReorderGroups(ctx context.Context, items []models.ReorderItem) error {
	return s.reorder(ctx, &groupRecord{}, items)
}

// Management prompts

func (s *Store) CreateManagementPrompt(ctx context.Context, payload models.CreateManagementPromptPayload) (*models.ManagementPrompt, error) {
	p, err := store.PrepareManagementPrompt(payload)
	if err != nil {
		return nil, err
	}

	var rec managementPromptRecord
	err = s.transaction(ctx, func(tx *Store) error {
		if _, err := load[models.Group, groupRecord](tx.db, p.GroupUUID, "Group not found"); err != nil {
			return err
		}

		order := 0
		if p.DisplayOrder != nil {
			order = *p.DisplayOrder
		} else if order, err = nextOrder(tx.db, &managementPromptRecord{}, "group_uuid", p.GroupUUID); err != nil {
			return err
		}

		now := models.Now()
		rec = managementPromptRecord{
			UUID:         p.UUID,
			GroupUUID:    p.GroupUUID,
			Name:         p.Name,
			Content:      p.Content,
			DisplayOrder: order,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return classify(tx.db.Create(&rec).Error)
	})
	if err != nil {
		s.logger.Error("Error creating management prompt", zap.String("group_uuid", p.GroupUUID), zap.Error(err))
		return nil, err
	}

	m := rec.model()
	s.logger.Info("ManagementPrompt created", zap.String("uuid", m.UUID), zap.String("name", m.Name))
	return &m, nil
}

func (s *Store) UpdateManagementPrompt(ctx context.Context, uuid string, payload models.UpdateManagementPromptPayload) (*models.ManagementPrompt, error) {
	p, err := store.PrepareManagementPromptUpdate(payload)
	if err != nil {
		return nil, err
	}

	var out *models.ManagementPrompt
	err = s.transaction(ctx, func(tx *Store) error {
		if !p.IsEmpty() {
			fields := map[string]any{}
			if p.GroupUUID != nil {
				if _, err := load[models.Group, groupRecord](tx.db, *p.GroupUUID, "Target group not found"); err != nil {
					return err
				}
				fields["group_uuid"] = *p.GroupUUID
			}
			if p.Name != nil {
				fields["name"] = *p.Name
			}
			if p.Content != nil {
				fields["content"] = *p.Content
			}
			if p.DisplayOrder != nil {
				fields["display_order"] = *p.DisplayOrder
			}
			if err := updateOne(tx.db, &managementPromptRecord{}, uuid, fields, "ManagementPrompt not found"); err != nil {
				return err
			}
		}
		var err error
		out, err = load[models.ManagementPrompt, managementPromptRecord](tx.db, uuid, "ManagementPrompt not found")
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) DeleteManagementPrompt(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting management prompt", zap.String("uuid", uuid))
	return deleteOne(s.with(ctx), &managementPromptRecord{}, uuid, "ManagementPrompt not found")
}

func (s *Store) GetManagementPrompt(ctx context.Context, uuid string) (*models.ManagementPrompt, error) {
	return lookup[models.ManagementPrompt, managementPromptRecord](s.with(ctx), uuid)
}

func (s *Store) ListManagementPrompts(ctx context.Context, groupUUID string) ([]models.ManagementPrompt, error) {
	var recs []managementPromptRecord
	err := s.with(ctx).
		Where("group_uuid = ?", groupUUID).
		Order("display_order ASC").Order("created_at ASC").Order("id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, classify(err)
	}
	return convert[models.ManagementPrompt](recs), nil
}

func (s *Store) AllManagementPrompts(ctx context.Context) ([]models.ManagementPrompt, error) {
	var recs []managementPromptRecord
	if err := s.with(ctx).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, classify(err)
	}
	return convert[models.ManagementPrompt](recs), nil
}

func (s *Store) ReorderManagementPrompts(ctx context.Context, items []models.ReorderItem) error {
	return s.reorder(ctx, &managementPromptRecord{}, items)
}

// Prompt results

func (s *Store) CreatePromptResult(ctx context.Context, payload models.CreatePromptResultPayload) (*models.PromptResult, error) {
	p, err := store.PreparePromptResult(payload)
	if err != nil {
		return nil, err
	}

	db := s.with(ctx)
	if _, err := load[models.ManagementPrompt, managementPromptRecord](db, p.PromptUUID, "ManagementPrompt not found"); err != nil {
		return nil, err
	}

	now := models.Now()
	rec := resultRecord{
		UUID:       p.UUID,
		PromptUUID: p.PromptUUID,
		Content:    p.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := db.Create(&rec).Error; err != nil {
		s.logger.Error("Error creating prompt result", zap.Error(err))
		return nil, classify(err)
	}

	r := rec.model()
	s.logger.Info("PromptResult created", zap.String("uuid", r.UUID), zap.String("prompt_uuid", r.PromptUUID))
	return &r, nil
}

func (s *Store) UpdatePromptResult(ctx context.Context, uuid string, payload models.UpdatePromptResultPayload) (*models.PromptResult, error) {
	p, err := store.PreparePromptResultUpdate(payload)
	if err != nil {
		return nil, err
	}

	db := s.with(ctx)
	if !p.IsEmpty() {
		fields := map[string]any{"content": *p.Content}
		if err := updateOne(db, &resultRecord{}, uuid, fields, "PromptResult not found"); err != nil {
			return nil, err
		}
	}
	return load[models.PromptResult, resultRecord](db, uuid, "PromptResult not found")
}

func (s *Store) DeletePromptResult(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting prompt result", zap.String("uuid", uuid))
	return deleteOne(s.with(ctx), &resultRecord{}, uuid, "PromptResult not found")
}

func (s *Store) GetPromptResult(ctx context.Context, uuid string) (*models.PromptResult, error) {
	return lookup[models.PromptResult, resultRecord](s.with(ctx), uuid)
}

func (s *Store) ListPromptResults(ctx context.Context, promptUUID string) ([]models.PromptResult, error) {
	var recs []resultRecord
	err := s.with(ctx).
		Where("prompt_uuid = ?", promptUUID).
		Order("created_at DESC").Order("id DESC").
		Find(&recs).Error
	if err != nil {
		return nil, classify(err)
	}
	return convert[models.PromptResult](recs), nil
}

func (s *Store) AllPromptResults(ctx context.Context) ([]models.PromptResult, error) {
	var recs []resultRecord
	if err := s.with(ctx).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, classify(err)
	}
	return convert[models.PromptResult](recs), nil
}
