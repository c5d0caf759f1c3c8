package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const promptsTable = "prompts"

func (s *Store) queryPrompts(ctx context.Context, q url.Values) ([]models.Prompt, error) {
	var rows []promptRow
	if err := s.fetch(ctx, promptsTable, q, &rows); err != nil {
		return nil, err
	}
	prompts, err := convert[models.Prompt](rows)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return prompts, nil
}

func live() url.Values {
	q := url.Values{}
	q.Set("deleted_at", "is.null")
	return q
}

func (s *Store) CreatePrompt(ctx context.Context, payload models.CreatePromptPayload) (*models.Prompt, error) {
	p, err := store.PreparePrompt(payload)
	if err != nil {
		return nil, err
	}

	now := models.Now()
	prompt := models.Prompt{
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

	var rows []promptRow
	if err := s.write(ctx, http.MethodPost, promptsTable, nil, promptInsert(prompt), &rows); err != nil {
		s.logger.Error("Error creating prompt", zap.Error(err))
		return nil, err
	}
	created, err := firstPrompt(rows)
	if err != nil {
		return nil, err
	}
	if created == nil {
		created = &prompt
	}

	s.logger.Info("Prompt created", zap.String("uuid", created.UUID), zap.String("title", created.Title))
	return created, nil
}

func firstPrompt(rows []promptRow) (*models.Prompt, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	p, err := rows[0].model()
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &p, nil
}

// InsertImportedPrompt upserts p on uuid. The reconciler only calls it when
// no live prompt exists, so a conflict can only revive a soft-deleted row.
func (s *Store) InsertImportedPrompt(ctx context.Context, p models.Prompt) error {
	q := url.Values{}
	q.Set("on_conflict", "uuid")
	_, err := s.makeRequest(ctx, http.MethodPost, promptsTable, q, promptInsert(p), preferUpsert)
	return err
}

func (s *Store) UpdatePrompt(ctx context.Context, uuid string, payload models.UpdatePromptPayload) (*models.Prompt, error) {
	p, err := store.PreparePromptUpdate(payload)
	if err != nil {
		return nil, err
	}

	if p.IsEmpty() {
		current, err := s.GetPrompt(ctx, uuid)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, apperr.NotFound("Prompt not found")
		}
		return current, nil
	}

	patch := map[string]any{"updated_at": models.FormatTime(models.Now())}
	if p.Title != nil {
		patch["title"] = *p.Title
	}
	if p.Description != nil {
		patch["description"] = nullable(*p.Description)
	}
	if p.Content != nil {
		patch["content"] = *p.Content
	}
	if p.Tags != nil {
		patch["tags"] = nullable(*p.Tags)
	}
	if p.Category != nil {
		patch["category"] = nullable(*p.Category)
	}
	if p.Language != nil {
		patch["language"] = nullable(*p.Language)
	}
	if p.IsFavorite != nil {
		patch["is_favorite"] = *p.IsFavorite
	}

	q := live()
	q.Set("uuid", "eq."+uuid)
	var rows []promptRow
	if err := s.write(ctx, http.MethodPatch, promptsTable, q, patch, &rows); err != nil {
		s.logger.Error("Error updating prompt", zap.String("uuid", uuid), zap.Error(err))
		return nil, err
	}
	updated, err := firstPrompt(rows)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("Prompt not found")
	}

	s.logger.Info("Prompt updated", zap.String("uuid", uuid))
	return updated, nil
}

// DeletePrompt soft-deletes a live prompt
func (s *Store) DeletePrompt(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting prompt", zap.String("uuid", uuid))

	q := live()
	q.Set("uuid", "eq."+uuid)
	var rows []promptRow
	patch := map[string]any{"deleted_at": models.FormatTime(models.Now())}
	if err := s.write(ctx, http.MethodPatch, promptsTable, q, patch, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperr.NotFound("Prompt not found")
	}
	return nil
}

func (s *Store) GetPrompt(ctx context.Context, uuid string) (*models.Prompt, error) {
	q := live()
	q.Set("uuid", "eq."+uuid)
	q.Set("limit", "1")

	var rows []promptRow
	if err := s.fetch(ctx, promptsTable, q, &rows); err != nil {
		return nil, err
	}
	return firstPrompt(rows)
}

// PromptDeleted reports whether uuid belongs to a soft-deleted prompt
func (s *Store) PromptDeleted(ctx context.Context, uuid string) (bool, error) {
	q := url.Values{}
	q.Set("select", "uuid")
	q.Set("uuid", "eq."+uuid)
	q.Set("deleted_at", "not.is.null")
	q.Set("limit", "1")

	var rows []struct {
		UUID string `json:"uuid"`
	}
	if err := s.fetch(ctx, promptsTable, q, &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (s *Store) ListPrompts(ctx context.Context, params models.ListPromptsParams) ([]models.Prompt, error) {
	start := time.Now()
	params = store.NormalizeList(params)

	q := live()
	q.Set("order", params.Sort+"."+params.Order)
	paginate(q, params.Limit, params.Offset)

	prompts, err := s.queryPrompts(ctx, q)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Prompts listed", zap.Int("count", len(prompts)), zap.Duration("duration", time.Since(start)))
	return prompts, nil
}

// SearchPrompts matches the query against title, description and content
// with ilike. Full text mode is not available remotely and behaves like
// contains.
func (s *Store) SearchPrompts(ctx context.Context, params models.SearchPromptsParams) ([]models.Prompt, error) {
	start := time.Now()
	params = store.NormalizeSearch(params)
	if !params.HasCriteria() {
		return s.ListPrompts(ctx, models.ListPromptsParams{Limit: params.Limit, Offset: params.Offset})
	}

	q := live()
	if params.Query != "" {
		pattern := ilikeValue(params.Query)
		q.Set("or", "(title.ilike."+pattern+",description.ilike."+pattern+",content.ilike."+pattern+")")
	}
	if params.Category != "" {
		q.Set("category", "eq."+params.Category)
	}
	if params.Tag != "" {
		q.Set("tags", "ilike."+ilikeValue(params.Tag))
	}
	q.Set("order", "updated_at.desc")
	paginate(q, params.Limit, params.Offset)

	prompts, err := s.queryPrompts(ctx, q)
	if err != nil {
		s.logger.Error("Error searching prompts", zap.String("query", params.Query), zap.Error(err))
		return nil, err
	}
	s.logger.Debug("Search completed",
		zap.Int("count", len(prompts)),
		zap.Duration("duration", time.Since(start)),
		zap.String("query", params.Query))
	return prompts, nil
}

// ilikeValue builds a quoted *term* pattern. LIKE wildcards in the term are
// escaped; PostgREST reserves "*" so it still matches anything.
func ilikeValue(term string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `%`, `\\%`, `_`, `\\_`, `"`, `\"`)
	return `"*` + r.Replace(term) + `*"`
}

func paginate(q url.Values, limit, offset int) {
	q.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
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

// ImportPrompts merges records one request at a time. A failed record is
// skipped and earlier records stay applied.
func (s *Store) ImportPrompts(ctx context.Context, records []models.ImportRecord) (models.ImportStats, error) {
	return store.Reconcile(ctx, s, records, s.logger)
}

func (s *Store) AllPrompts(ctx context.Context) ([]models.Prompt, error) {
	q := live()
	q.Set("order", "created_at.asc,uuid.asc")
	rows, err := fetchPages[promptRow](ctx, s, promptsTable, q)
	if err != nil {
		return nil, err
	}
	prompts, err := convert[models.Prompt](rows)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return prompts, nil
}

// nullable maps "" to JSON null
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
