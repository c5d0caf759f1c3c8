package remote

import (
	"context"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const (
	categoriesTable        = "categories"
	groupsTable            = "groups"
	managementPromptsTable = "management_prompts"
	resultsTable           = "prompt_results"
)

// first converts the first row, or returns nil for none
func first[T any, R modelRow[T]](rows []R) (*T, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	m, err := rows[0].model()
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &m, nil
}

// getOne fetches a row by uuid
func getOne[T any, R modelRow[T]](ctx context.Context, s *Store, table, uuid string) (*T, error) {
	q := byUUID(uuid)
	q.Set("limit", "1")
	var rows []R
	if err := s.fetch(ctx, table, q, &rows); err != nil {
		return nil, err
	}
	return first[T](rows)
}

// listAll fetches rows matching q
func listAll[T any, R modelRow[T]](ctx context.Context, s *Store, table string, q url.Values) ([]T, error) {
	rows, err := fetchPages[R](ctx, s, table, q)
	if err != nil {
		return nil, err
	}
	out, err := convert[T](rows)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}

// insertOne posts payload and returns the stored row
func insertOne[T any, R modelRow[T]](ctx context.Context, s *Store, table string, payload map[string]any) (*T, error) {
	var rows []R
	if err := s.write(ctx, http.MethodPost, table, nil, payload, &rows); err != nil {
		return nil, err
	}
	return first[T](rows)
}

// patchOne applies patch to one row, reporting notFound when nothing matched
func patchOne[T any, R modelRow[T]](ctx context.Context, s *Store, table, uuid string, patch map[string]any, notFound string) (*T, error) {
	patch["updated_at"] = models.FormatTime(models.Now())
	var rows []R
	if err := s.write(ctx, http.MethodPatch, table, byUUID(uuid), patch, &rows); err != nil {
		return nil, err
	}
	m, err := first[T](rows)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotFound("%s", notFound)
	}
	return m, nil
}

// current returns the row for an update without fields
func current[T any, R modelRow[T]](ctx context.Context, s *Store, table, uuid, notFound string) (*T, error) {
	m, err := getOne[T, R](ctx, s, table, uuid)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apperr.NotFound("%s", notFound)
	}
	return m, nil
}

func childrenOf(parentCol, parent, order string) url.Values {
	q := url.Values{}
	q.Set(parentCol, "eq."+parent)
	q.Set("order", order)
	return q
}

// Categories

func (s *Store) CreateCategory(ctx context.Context, payload models.CreateCategoryPayload) (*models.Category, error) {
	p, err := store.PrepareCategory(payload)
	if err != nil {
		return nil, err
	}
	now := models.FormatTime(models.Now())
	c, err := insertOne[models.Category, categoryRow](ctx, s, categoriesTable, map[string]any{
		"uuid":        p.UUID,
		"name":        p.Name,
		"description": p.Description,
		"created_at":  now,
		"updated_at":  now,
	})
	if err != nil {
		s.logger.Error("Error creating category", zap.Error(err))
		return nil, err
	}
	if c == nil {
		return nil, apperr.Storage(errEmptyInsert)
	}
	s.logger.Info("Category created", zap.String("uuid", c.UUID), zap.String("name", c.Name))
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, uuid string, payload models.UpdateCategoryPayload) (*models.Category, error) {
	p, err := store.PrepareCategoryUpdate(payload)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return current[models.Category, categoryRow](ctx, s, categoriesTable, uuid, "Category not found")
	}
	patch := map[string]any{}
	if p.Name != nil {
		patch["name"] = *p.Name
	}
	if p.Description != nil {
		patch["description"] = nullable(*p.Description)
	}
	return patchOne[models.Category, categoryRow](ctx, s, categoriesTable, uuid, patch, "Category not found")
}

// DeleteCategory relies on the schema's ON DELETE CASCADE for children
func (s *Store) DeleteCategory(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting category", zap.String("uuid", uuid))
	return s.remove(ctx, categoriesTable, uuid, "Category not found")
}

func (s *Store) GetCategory(ctx context.Context, uuid string) (*models.Category, error) {
	return getOne[models.Category, categoryRow](ctx, s, categoriesTable, uuid)
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	q := url.Values{}
	q.Set("order", "name.asc,uuid.asc")
	return listAll[models.Category, categoryRow](ctx, s, categoriesTable, q)
}

// Groups

func (s *Store) CreateGroup(ctx context.Context, payload models.CreateGroupPayload) (*models.Group, error) {
	p, err := store.PrepareGroup(payload)
	if err != nil {
		return nil, err
	}

	parent, err := s.GetCategory(ctx, p.CategoryUUID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, apperr.NotFound("Category not found")
	}

	order := 0
	if p.DisplayOrder != nil {
		order = *p.DisplayOrder
	} else if order, err = s.nextOrder(ctx, groupsTable, "category_uuid", p.CategoryUUID); err != nil {
		return nil, err
	}

	now := models.FormatTime(models.Now())
	g, err := insertOne[models.Group, groupRow](ctx, s, groupsTable, map[string]any{
		"uuid":             p.UUID,
		"category_uuid":    p.CategoryUUID,
		"name":             p.Name,
		"description":      p.Description,
		"display_order":    order,
		"global_variables": p.GlobalVariables,
		"created_at":       now,
		"updated_at":       now,
	})
	if err != nil {
		s.logger.Error("Error creating group", zap.String("category_uuid", p.CategoryUUID), zap.Error(err))
		return nil, err
	}
	if g == nil {
		return nil, apperr.Storage(errEmptyInsert)
	}
	s.logger.Info("Group created", zap.String("uuid", g.UUID), zap.String("name", g.Name))
	return g, nil
}

func (s *Store) UpdateGroup(ctx context.Context, uuid string, payload models.UpdateGroupPayload) (*models.Group, error) {
	p, err := store.PrepareGroupUpdate(payload)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return current[models.Group, groupRow](ctx, s, groupsTable, uuid, "Group not found")
	}
	patch := map[string]any{}
	if p.Name != nil {
		patch["name"] = *p.Name
	}
	if p.Description != nil {
		patch["description"] = nullable(*p.Description)
	}
	if p.DisplayOrder != nil {
		patch["display_order"] = *p.DisplayOrder
	}
	if p.GlobalVariables != nil {
		patch["global_variables"] = p.GlobalVariables.Clone()
	}
	return patchOne[models.Group, groupRow](ctx, s, groupsTable, uuid, patch, "Group not found")
}

func (s *Store) DeleteGroup(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting group", zap.String("uuid", uuid))
	return s.remove(ctx, groupsTable, uuid, "Group not found")
}

func (s *Store) GetGroup(ctx context.Context, uuid string) (*models.Group, error) {
	return getOne[models.Group, groupRow](ctx, s, groupsTable, uuid)
}

func (s *Store) ListGroups(ctx context.Context, categoryUUID string) ([]models.Group, error) {
	q := childrenOf("category_uuid", categoryUUID, "display_order.asc,created_at.asc,uuid.asc")
	return listAll[models.Group, groupRow](ctx, s, groupsTable, q)
}

// ReorderGroups patches each group in turn; see reorder for failure semantics
func (s *Store) ReorderGroups(ctx context.Context, items []models.ReorderItem) error {
	return s.reorder(ctx, groupsTable, items)
}

// Management prompts

func (s *Store) CreateManagementPrompt(ctx context.Context, payload models.CreateManagementPromptPayload) (*models.ManagementPrompt, error) {
	p, err := store.PrepareManagementPrompt(payload)
	if err != nil {
		return nil, err
	}

	group, err := s.GetGroup(ctx, p.GroupUUID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, apperr.NotFound("Group not found")
	}

	order := 0
	if p.DisplayOrder != nil {
		order = *p.DisplayOrder
	} else if order, err = s.nextOrder(ctx, managementPromptsTable, "group_uuid", p.GroupUUID); err != nil {
		return nil, err
	}

	now := models.FormatTime(models.Now())
	m, err := insertOne[models.ManagementPrompt, managementPromptRow](ctx, s, managementPromptsTable, map[string]any{
		"uuid":          p.UUID,
		"group_uuid":    p.GroupUUID,
		"name":          p.Name,
		"content":       p.Content,
		"display_order": order,
		"created_at":    now,
		"updated_at":    now,
	})
	if err != nil {
		s.logger.Error("Error creating management prompt", zap.String("group_uuid", p.GroupUUID), zap.Error(err))
		return nil, err
	}
	if m == nil {
		return nil, apperr.Storage(errEmptyInsert)
	}
	s.logger.Info("ManagementPrompt created", zap.String("uuid", m.UUID), zap.String("name", m.Name))
	return m, nil
}

func (s *Store) UpdateManagementPrompt(ctx context.Context, uuid string, payload models.UpdateManagementPromptPayload) (*models.ManagementPrompt, error) {
	p, err := store.PrepareManagementPromptUpdate(payload)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return current[models.ManagementPrompt, managementPromptRow](ctx, s, managementPromptsTable, uuid, "ManagementPrompt not found")
	}

	patch := map[string]any{}
	if p.GroupUUID != nil {
		target, err := s.GetGroup(ctx, *p.GroupUUID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, apperr.NotFound("Target group not found")
		}
		patch["group_uuid"] = *p.GroupUUID
	}
	if p.Name != nil {
		patch["name"] = *p.Name
	}
	if p.Content != nil {
		patch["content"] = *p.Content
	}
	if p.DisplayOrder != nil {
		patch["display_order"] = *p.DisplayOrder
	}
	return patchOne[models.ManagementPrompt, managementPromptRow](ctx, s, managementPromptsTable, uuid, patch, "ManagementPrompt not found")
}

func (s *Store) DeleteManagementPrompt(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting management prompt", zap.String("uuid", uuid))
	return s.remove(ctx, managementPromptsTable, uuid, "ManagementPrompt not found")
}

func (s *Store) GetManagementPrompt(ctx context.Context, uuid string) (*models.ManagementPrompt, error) {
	return getOne[models.ManagementPrompt, managementPromptRow](ctx, s, managementPromptsTable, uuid)
}

func (s *Store) ListManagementPrompts(ctx context.Context, groupUUID string) ([]models.ManagementPrompt, error) {
	q := childrenOf("group_uuid", groupUUID, "display_order.asc,created_at.asc,uuid.asc")
	return listAll[models.ManagementPrompt, managementPromptRow](ctx, s, managementPromptsTable, q)
}

func (s *Store) ReorderManagementPrompts(ctx context.Context, items []models.ReorderItem) error {
	return s.reorder(ctx, managementPromptsTable, items)
}

// Prompt results

func (s *Store) CreatePromptResult(ctx context.Context, payload models.CreatePromptResultPayload) (*models.PromptResult, error) {
	p, err := store.PreparePromptResult(payload)
	if err != nil {
		return nil, err
	}

	parent, err := s.GetManagementPrompt(ctx, p.PromptUUID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, apperr.NotFound("ManagementPrompt not found")
	}

	now := models.FormatTime(models.Now())
	r, err := insertOne[models.PromptResult, resultRow](ctx, s, resultsTable, map[string]any{
		"uuid":        p.UUID,
		"prompt_uuid": p.PromptUUID,
		"content":     p.Content,
		"created_at":  now,
		"updated_at":  now,
	})
	if err != nil {
		s.logger.Error("Error creating prompt result", zap.Error(err))
		return nil, err
	}
	if r == nil {
		return nil, apperr.Storage(errEmptyInsert)
	}
	s.logger.Info("PromptResult created", zap.String("uuid", r.UUID), zap.String("prompt_uuid", r.PromptUUID))
	return r, nil
}

func (s *Store) UpdatePromptResult(ctx context.Context, uuid string, payload models.UpdatePromptResultPayload) (*models.PromptResult, error) {
	p, err := store.PreparePromptResultUpdate(payload)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return current[models.PromptResult, resultRow](ctx, s, resultsTable, uuid, "PromptResult not found")
	}
	patch := map[string]any{"content": *p.Content}
	return patchOne[models.PromptResult, resultRow](ctx, s, resultsTable, uuid, patch, "PromptResult not found")
}

func (s *Store) DeletePromptResult(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting prompt result", zap.String("uuid", uuid))
	return s.remove(ctx, resultsTable, uuid, "PromptResult not found")
}

func (s *Store) GetPromptResult(ctx context.Context, uuid string) (*models.PromptResult, error) {
	return getOne[models.PromptResult, resultRow](ctx, s, resultsTable, uuid)
}

// ListPromptResults returns newest first
func (s *Store) ListPromptResults(ctx context.Context, promptUUID string) ([]models.PromptResult, error) {
	q := childrenOf("prompt_uuid", promptUUID, "created_at.desc,uuid.desc")
	return listAll[models.PromptResult, resultRow](ctx, s, resultsTable, q)
}

// Snapshot reads, oldest first

func createdOrder() url.Values {
	q := url.Values{}
	q.Set("order", "created_at.asc,uuid.asc")
	return q
}

func (s *Store) AllCategories(ctx context.Context) ([]models.Category, error) {
	return listAll[models.Category, categoryRow](ctx, s, categoriesTable, createdOrder())
}

func (s *Store) AllGroups(ctx context.Context) ([]models.Group, error) {
	return listAll[models.Group, groupRow](ctx, s, groupsTable, createdOrder())
}

func (s *Store) AllManagementPrompts(ctx context.Context) ([]models.ManagementPrompt, error) {
	return listAll[models.ManagementPrompt, managementPromptRow](ctx, s, managementPromptsTable, createdOrder())
}

func (s *Store) AllPromptResults(ctx context.Context) ([]models.PromptResult, error) {
	return listAll[models.PromptResult, resultRow](ctx, s, resultsTable, createdOrder())
}
