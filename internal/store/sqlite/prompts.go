package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const promptColumns = `p.uuid, p.title, p.description, p.content, p.tags, p.category, p.language,
	p.is_favorite, p.created_at, p.updated_at, p.deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row rowScanner) (*models.Prompt, error) {
	var (
		p                    models.Prompt
		description, tags    sql.NullString
		category, language   sql.NullString
		deletedAt            sql.NullString
		favorite             int
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.UUID, &p.Title, &description, &p.Content, &tags, &category, &language,
		&favorite, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}
	p.Description = ptrFromNull(description)
	p.Tags = ptrFromNull(tags)
	p.Category = ptrFromNull(category)
	p.Language = ptrFromNull(language)
	p.IsFavorite = favorite != 0

	var err error
	if p.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("prompt %s created_at: %w", p.UUID, err)
	}
	if p.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("prompt %s updated_at: %w", p.UUID, err)
	}
	if deletedAt.Valid {
		t, err := models.ParseTime(deletedAt.String)
		if err != nil {
			return nil, fmt.Errorf("prompt %s deleted_at: %w", p.UUID, err)
		}
		p.DeletedAt = &t
	}
	return &p, nil
}

func (s *Store) queryPrompts(ctx context.Context, query string, args ...any) ([]models.Prompt, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	prompts := []models.Prompt{}
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		prompts = append(prompts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return prompts, nil
}

// CreatePrompt validates and inserts a new prompt
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
	if err := s.insertPrompt(ctx, prompt); err != nil {
		s.logger.Error("Error creating prompt", zap.Error(err))
		return nil, err
	}

	s.logger.Info("Prompt created", zap.String("uuid", prompt.UUID), zap.String("title", prompt.Title))
	return &prompt, nil
}

func (s *Store) insertPrompt(ctx context.Context, p models.Prompt) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO prompts
		(uuid, title, description, content, tags, category, language, is_favorite, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UUID, p.Title, nullablePtr(p.Description), p.Content, nullablePtr(p.Tags),
		nullablePtr(p.Category), nullablePtr(p.Language), boolToInt(p.IsFavorite),
		models.FormatTime(p.CreatedAt), models.FormatTime(p.UpdatedAt))
	if err != nil {
		return apperr.Storage(fmt.Errorf("failed to insert prompt: %w", err))
	}
	return nil
}

// InsertImportedPrompt stores p as given. A soft-deleted row with the same
// uuid is overwritten and revived.
func (s *Store) InsertImportedPrompt(ctx context.Context, p models.Prompt) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO prompts
		(uuid, title, description, content, tags, category, language, is_favorite, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			content = excluded.content,
			tags = excluded.tags,
			category = excluded.category,
			language = excluded.language,
			is_favorite = excluded.is_favorite,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted_at = NULL
		WHERE prompts.deleted_at IS NOT NULL`,
		p.UUID, p.Title, nullablePtr(p.Description), p.Content, nullablePtr(p.Tags),
		nullablePtr(p.Category), nullablePtr(p.Language), boolToInt(p.IsFavorite),
		models.FormatTime(p.CreatedAt), models.FormatTime(p.UpdatedAt))
	if err != nil {
		return apperr.Storage(fmt.Errorf("failed to import prompt: %w", err))
	}
	return nil
}

// UpdatePrompt applies the present fields of payload
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

	var a assignments
	if p.Title != nil {
		a.set("title", *p.Title)
	}
	if p.Description != nil {
		a.set("description", nullable(*p.Description))
	}
	if p.Content != nil {
		a.set("content", *p.Content)
	}
	if p.Tags != nil {
		a.set("tags", nullable(*p.Tags))
	}
	if p.Category != nil {
		a.set("category", nullable(*p.Category))
	}
	if p.Language != nil {
		a.set("language", nullable(*p.Language))
	}
	if p.IsFavorite != nil {
		a.set("is_favorite", boolToInt(*p.IsFavorite))
	}
	a.set("updated_at", models.FormatTime(models.Now()))

	res, err := s.q.ExecContext(ctx,
		"UPDATE prompts SET "+a.clause()+" WHERE uuid = ? AND deleted_at IS NULL",
		append(a.args, uuid)...)
	if err != nil {
		s.logger.Error("Error updating prompt", zap.String("uuid", uuid), zap.Error(err))
		return nil, apperr.Storage(fmt.Errorf("failed to update prompt: %w", err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, apperr.NotFound("Prompt not found")
	}

	s.logger.Info("Prompt updated", zap.String("uuid", uuid))
	updated, err := s.GetPrompt(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperr.NotFound("Prompt not found")
	}
	return updated, nil
}

// DeletePrompt soft-deletes a live prompt
func (s *Store) DeletePrompt(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting prompt", zap.String("uuid", uuid))

	res, err := s.q.ExecContext(ctx,
		"UPDATE prompts SET deleted_at = ? WHERE uuid = ? AND deleted_at IS NULL",
		models.FormatTime(models.Now()), uuid)
	if err != nil {
		return apperr.Storage(fmt.Errorf("failed to delete prompt: %w", err))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound("Prompt not found")
	}
	return nil
}

// GetPrompt returns the live prompt with uuid, or nil
func (s *Store) GetPrompt(ctx context.Context, uuid string) (*models.Prompt, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+promptColumns+" FROM prompts p WHERE p.uuid = ? AND p.deleted_at IS NULL", uuid)
	p, err := scanPrompt(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return p, nil
}

// PromptDeleted reports whether uuid belongs to a soft-deleted prompt
func (s *Store) PromptDeleted(ctx context.Context, uuid string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx,
		"SELECT 1 FROM prompts WHERE uuid = ? AND deleted_at IS NOT NULL LIMIT 1", uuid).Scan(&one)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage(err)
	}
	return true, nil
}

// ListPrompts returns live prompts in the requested order
func (s *Store) ListPrompts(ctx context.Context, params models.ListPromptsParams) ([]models.Prompt, error) {
	start := time.Now()
	params = store.NormalizeList(params)

	// Sort and order come from a fixed allow-list.
	query := fmt.Sprintf("SELECT %s FROM prompts p WHERE p.deleted_at IS NULL ORDER BY p.%s %s, p.id %s LIMIT ? OFFSET ?",
		promptColumns, params.Sort, strings.ToUpper(params.Order), strings.ToUpper(params.Order))
	prompts, err := s.queryPrompts(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Prompts listed",
		zap.Int("count", len(prompts)),
		zap.Duration("duration", time.Since(start)))
	return prompts, nil
}

// SearchPrompts filters live prompts. Without a query or filters it is ListPrompts.
func (s *Store) SearchPrompts(ctx context.Context, params models.SearchPromptsParams) ([]models.Prompt, error) {
	start := time.Now()
	params = store.NormalizeSearch(params)
	if !params.HasCriteria() {
		return s.ListPrompts(ctx, models.ListPromptsParams{Limit: params.Limit, Offset: params.Offset})
	}

	var (
		from    = "prompts p"
		where   = []string{"p.deleted_at IS NULL"}
		args    []any
		orderBy = "p.updated_at DESC"
	)

	if params.Query != "" {
		if params.Mode == models.SearchFullText {
			from = "prompts p JOIN prompts_fts fts ON p.id = fts.rowid"
			where = append(where, "prompts_fts MATCH ?")
			args = append(args, ftsQuery(params.Query))
			orderBy = "fts.rank, p.updated_at DESC"
		} else {
			like := likePattern(params.Query)
			where = append(where,
				`(p.title LIKE ? ESCAPE '\' OR p.description LIKE ? ESCAPE '\' OR p.content LIKE ? ESCAPE '\')`)
			args = append(args, like, like, like)
		}
	}
	if params.Category != "" {
		where = append(where, "p.category = ?")
		args = append(args, params.Category)
	}
	if params.Tag != "" {
		where = append(where, `p.tags LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(params.Tag))
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT ? OFFSET ?",
		promptColumns, from, strings.Join(where, " AND "), orderBy)
	args = append(args, params.Limit, params.Offset)

	prompts, err := s.queryPrompts(ctx, query, args...)
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

// ftsQuery turns free text into an FTS5 expression: every whitespace
// separated term quoted, terms OR-ed together.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " OR ")
}

// ExportPrompts returns every live prompt, oldest first
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
	err := s.withTx(ctx, func(tx *Store) error {
		var err error
		stats, err = store.Reconcile(ctx, tx, records, s.logger)
		return err
	})
	if err != nil {
		return models.ImportStats{}, err
	}
	return stats, nil
}

// AllPrompts returns every live prompt ordered by created_at ascending
func (s *Store) AllPrompts(ctx context.Context) ([]models.Prompt, error) {
	return s.queryPrompts(ctx,
		"SELECT "+promptColumns+" FROM prompts p WHERE p.deleted_at IS NULL ORDER BY p.created_at ASC, p.id ASC")
}
