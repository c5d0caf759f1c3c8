package sqlite

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const resultColumns = "uuid, prompt_uuid, content, created_at, updated_at"

func scanPromptResult(row rowScanner) (*models.PromptResult, error) {
	var (
		r                    models.PromptResult
		createdAt, updatedAt string
		err                  error
	)
	if err = row.Scan(&r.UUID, &r.PromptUUID, &r.Content, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = models.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = models.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

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

	now := models.Now()
	_, err = s.q.ExecContext(ctx,
		"INSERT INTO prompt_results (uuid, prompt_uuid, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		p.UUID, p.PromptUUID, p.Content, models.FormatTime(now), models.FormatTime(now))
	if err != nil {
		s.logger.Error("Error creating prompt result", zap.Error(err))
		return nil, apperr.Storage(fmt.Errorf("failed to insert prompt result: %w", err))
	}

	s.logger.Info("PromptResult created", zap.String("uuid", p.UUID), zap.String("prompt_uuid", p.PromptUUID))
	return &models.PromptResult{
		UUID:       p.UUID,
		PromptUUID: p.PromptUUID,
		Content:    p.Content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// UpdatePromptResult can only change the content
func (s *Store) UpdatePromptResult(ctx context.Context, uuid string, payload models.UpdatePromptResultPayload) (*models.PromptResult, error) {
	p, err := store.PreparePromptResultUpdate(payload)
	if err != nil {
		return nil, err
	}

	if !p.IsEmpty() {
		var a assignments
		a.set("content", *p.Content)
		a.set("updated_at", models.FormatTime(models.Now()))
		if err := s.applyUpdate(ctx, "prompt_results", &a, uuid, "PromptResult not found"); err != nil {
			return nil, err
		}
		s.logger.Info("PromptResult updated", zap.String("uuid", uuid))
	}

	r, err := s.GetPromptResult(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperr.NotFound("PromptResult not found")
	}
	return r, nil
}

func (s *Store) DeletePromptResult(ctx context.Context, uuid string) error {
	s.logger.Warn("Deleting prompt result", zap.String("uuid", uuid))
	return s.hardDelete(ctx, "prompt_results", uuid, "PromptResult not found")
}

func (s *Store) GetPromptResult(ctx context.Context, uuid string) (*models.PromptResult, error) {
	r, err := scanPromptResult(s.q.QueryRowContext(ctx,
		"SELECT "+resultColumns+" FROM prompt_results WHERE uuid = ?", uuid))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return r, nil
}

// ListPromptResults returns a prompt's results, newest first
func (s *Store) ListPromptResults(ctx context.Context, promptUUID string) ([]models.PromptResult, error) {
	return s.queryPromptResults(ctx,
		"SELECT "+resultColumns+" FROM prompt_results WHERE prompt_uuid = ? ORDER BY created_at DESC, id DESC",
		promptUUID)
}

func (s *Store) AllPromptResults(ctx context.Context) ([]models.PromptResult, error) {
	return s.queryPromptResults(ctx, "SELECT "+resultColumns+" FROM prompt_results ORDER BY created_at ASC, id ASC")
}

func (s *Store) queryPromptResults(ctx context.Context, query string, args ...any) ([]models.PromptResult, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()

	out := []models.PromptResult{}
	for rows.Next() {
		r, err := scanPromptResult(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage(err)
	}
	return out, nil
}
