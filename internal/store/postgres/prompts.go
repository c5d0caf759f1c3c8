package postgres

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

func (s *Store) CreatePrompt(ctx context.Context, payload models.CreatePromptPayload) (*models.Prompt, error) {
	p, err := store.PreparePrompt(payload)
	if err != nil {
		return nil, err
	}

	now := models.Now()
	rec := promptRecord{
		UUID:        p.UUID,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		Tags:        p.Tags,
		Category:    p.Category,
		Language:    p.Language,
		IsFavorite:  p.IsFavorite != nil && *p.IsFavorite,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.with(ctx).Create(&rec).Error; err != nil {
		s.logger.Error("Error creating prompt", zap.Error(err))
		return nil, classify(err)
	}

	prompt := rec.model()
	s.logger.Info("Prompt created", zap.String("uuid", prompt.UUID), zap.String("title", prompt.Title))
	return &prompt, nil
}

// InsertImportedPrompt stores p with its own timestamps. A soft-deleted row
// with the same uuid is overwritten and revived.
func (s *Store) InsertImportedPrompt(ctx context.Context, p models.Prompt) error {
	db := s.with(ctx)
	rec := promptFromModel(p)

	deleted, err := first[promptRecord](db.Unscoped(), p.UUID)
	if err != nil {
		return err
	}
	if deleted == nil {
		return classify(db.Create(&rec).Error)
	}

	return classify(db.Unscoped().Model(&promptRecord{}).Where("uuid = ?", p.UUID).Updates(map[string]any{
		"title":       rec.Title,
		"description": rec.Description,
		"content":     rec.Content,
		"tags":        rec.Tags,
		"category":    rec.Category,
		"language":    rec.Language,
		"is_favorite": rec.IsFavorite,
		"created_at":  rec.CreatedAt,
		"updated_at":  rec.UpdatedAt,
		"deleted_at":  nil,
	}).Error)
}

func (s *Store) UpdatePrompt(ctx context.Context, uuid string, payload models.UpdatePromptPayload) (*models.Prompt, error) {
	p, err := store.PreparePromptUpdate(payload)
	if err != nil {
		return nil, err
	}

	if !p.IsEmpty() {
		fields := map[string]any{}
		if p.Title != nil {
			fields["title"] = *p.Title
		}
		if p.Description != nil {
			fields["description"] = nullable(*p.Description)
		}
		if p.Content != nil {
			fields["content"] = *p.Content
		}
		if p.Tags != nil {
			fields["tags"] = nullable(*p.Tags)
		}
		if p.Category != nil {
			fields["category"] = nullable(*p.Category)
		}
		if p.Language != nil {
			fields["language"] = nullable(*p.Language)
		}
		if p.IsFavorite != nil {
			fields["is_favorite"] = *p.IsFavorite
		}
		if err := updateOne(s.with(ctx), &promptRecord{}, uuid, fields, "Prompt not found"); err != nil {
			s.logger.Error("Error updating prompt", zap.String("uuid", uuid), zap.Error(err))
			return nil, err
		}
		s.logger.Info("Prompt updated", zap.String("uuid", uuid))
	}

	updated, err := s.GetPrompt(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("Prompt not found")
	}
	return updated, nil
}

// DeletePrompt soft-deletes through gorm.DeletedAt
func (s *Store) DeletePrompt(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting prompt", zap.String("uuid", uuid))
	return deleteOne(s.with(ctx), &promptRecord{}, uuid, "Prompt not found")
}

func (s *Store) GetPrompt(ctx context.Context, uuid string) (*models.Prompt, error) {
	rec, err := first[promptRecord](s.with(ctx), uuid)
	if err != nil || rec == nil {
		return nil, err
	}
	p := rec.model()
	return &p, nil
}

// PromptDeleted reports whether uuid belongs to a soft-deleted prompt
func (s *Store) PromptDeleted(ctx context.Context, uuid string) (bool, error) {
	var n int64
	err := s.with(ctx).Unscoped().Model(&promptRecord{}).
		Where("uuid = ? AND deleted_at IS NOT NULL", uuid).
		Count(&n).Error
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

func (s *Store) ListPrompts(ctx context.Context, params models.ListPromptsParams) ([]models.Prompt, error) {
	start := time.Now()
	params = store.NormalizeList(params)

	var recs []promptRecord
	err := s.with(ctx).
		Order(params.Sort + " " + params.Order).
		Order("id " + params.Order).
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&recs).Error
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Debug("Prompts listed", zap.Int("count", len(recs)), zap.Duration("duration", time.Since(start)))
	return convert[models.Prompt](recs), nil
}

// SearchPrompts uses ILIKE for both modes
func (s *Store) SearchPrompts(ctx context.Context, params models.SearchPromptsParams) ([]models.Prompt, error) {
	start := time.Now()
	params = store.NormalizeSearch(params)
	if !params.HasCriteria() {
		return s.ListPrompts(ctx, models.ListPromptsParams{Limit: params.Limit, Offset: params.Offset})
	}

	db := s.with(ctx)
	if params.Query != "" {
		like := likePattern(params.Query)
		db = db.Where("title ILIKE ? OR description ILIKE ? OR content ILIKE ?", like, like, like)
	}
	if params.Category != "" {
		db = db.Where("category = ?", params.Category)
	}
	if params.Tag != "" {
		db = db.Where("tags ILIKE ?", likePattern(params.Tag))
	}

	var recs []promptRecord
	if err := db.Order("updated_at DESC").Limit(params.Limit).Offset(params.Offset).Find(&recs).Error; err != nil {
		s.logger.Error("Error searching prompts", zap.String("query", params.Query), zap.Error(err))
		return nil, classify(err)
	}

	s.logger.Debug("Search completed",
		zap.Int("count", len(recs)),
		zap.Duration("duration", time.Since(start)),
		zap.String("query", params.Query))
	return convert[models.Prompt](recs), nil
}

func (s *Store) ExportPrompts(ctx context.Context) ([]models.ExportedPrompt, error) {
	prompts, err := s.AllPrompts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ExportedPrompt, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, p.Export())
	}
	s.logger.Info("Prompts exported", zap.Int("count", len(out)))
	return out, nil
}

// ImportPrompts merges records inside one transaction
func (s *Store) ImportPrompts(ctx context.Context, records []models.ImportRecord) (models.ImportStats, error) {
	var stats models.ImportStats
	err := s.transaction(ctx, func(tx *Store) error {
		var err error
		stats, err = store.Reconcile(ctx, savepointTarget{tx}, records, s.logger)
		return err
	})
	if err != nil {
		return models.ImportStats{}, err
	}
	return stats, nil
}

// savepointTarget runs each write in a nested transaction. A failed
// statement aborts a Postgres transaction, so a bad record must be rolled
// back to its savepoint before the next one runs.
type savepointTarget struct {
	*Store
}

func (t savepointTarget) InsertImportedPrompt(ctx context.Context, p models.Prompt) error {
	return t.transaction(ctx, func(sp *Store) error {
		return sp.InsertImportedPrompt(ctx, p)
	})
}

func (t savepointTarget) UpdatePrompt(ctx context.Context, uuid string, payload models.UpdatePromptPayload) (*models.Prompt, error) {
	var out *models.Prompt
	err := t.transaction(ctx, func(sp *Store) error {
		var err error
		out, err = sp.UpdatePrompt(ctx, uuid, payload)
		return err
	})
	return out, err
}

func (s *Store) AllPrompts(ctx context.Context) ([]models.Prompt, error) {
	var recs []promptRecord
	if err := s.with(ctx).Order("created_at ASC").Order("id ASC").Find(&recs).Error; err != nil {
		return nil, classify(err)
	}
	return convert[models.Prompt](recs), nil
}

// nullable maps "" to NULL
func nullable(v string) any {
	if v == "" {
		return gorm.Expr("NULL")
	}
	return v
}

// likePattern builds a %substring% pattern; backslash is Postgres' default
// LIKE escape.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
