package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/logging"
	"github.com/kutbudev/promptvault/internal/models"
)

// MergeTarget is the slice of a backend the import reconciler works against.
// SQL backends hand in a transaction-bound view so the whole batch commits
// or rolls back together.
type MergeTarget interface {
	GetPrompt(ctx context.Context, uuid string) (*models.Prompt, error)
	UpdatePrompt(ctx context.Context, uuid string, payload models.UpdatePromptPayload) (*models.Prompt, error)
	// InsertImportedPrompt stores p with its supplied identity and
	// timestamps. A soft-deleted row with the same uuid is revived.
	InsertImportedPrompt(ctx context.Context, p models.Prompt) error
}

// Reconcile merges records into target one at a time. A record is inserted
// when its uuid is unknown, overwritten when its updated_at is strictly newer
// than the stored one, and skipped otherwise. Any per-record failure counts
// as skipped. The comparison trusts the producer's clock: last writer wins.
//
// The returned error is only ever the context's error.
func Reconcile(ctx context.Context, target MergeTarget, records []models.ImportRecord, log *zap.Logger) (models.ImportStats, error) {
	log = logging.OrNop(log)
	var stats models.ImportStats

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		outcome, err := mergeOne(ctx, target, rec)
		if err != nil {
			log.Warn("Import record skipped",
				zap.Int("index", i),
				zap.String("uuid", rec.UUID),
				zap.Error(err))
			stats.Skipped++
			continue
		}
		switch outcome {
		case mergeInserted:
			stats.Imported++
		case mergeUpdated:
			stats.Updated++
		default:
			stats.Skipped++
		}
	}

	log.Info("Import completed",
		zap.Int("imported", stats.Imported),
		zap.Int("updated", stats.Updated),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

type mergeOutcome int

const (
	mergeSkipped mergeOutcome = iota
	mergeInserted
	mergeUpdated
)

func mergeOne(ctx context.Context, target MergeTarget, rec models.ImportRecord) (mergeOutcome, error) {
	if rec.UUID == "" || rec.Title == "" || rec.Content == "" {
		return mergeSkipped, fmt.Errorf("uuid, title and content are required")
	}

	now := models.Now()
	updatedAt, err := timeOr(rec.UpdatedAt, now)
	if err != nil {
		return mergeSkipped, fmt.Errorf("invalid updated_at: %w", err)
	}

	existing, err := target.GetPrompt(ctx, rec.UUID)
	if err != nil {
		return mergeSkipped, err
	}

	if existing == nil {
		createdAt, err := timeOr(rec.CreatedAt, now)
		if err != nil {
			return mergeSkipped, fmt.Errorf("invalid created_at: %w", err)
		}
		p := models.Prompt{
			UUID:        rec.UUID,
			Title:       rec.Title,
			Description: emptyToNil(rec.Description),
			Content:     rec.Content,
			Tags:        emptyToNil(rec.Tags),
			Category:    emptyToNil(rec.Category),
			Language:    emptyToNil(rec.Language),
			IsFavorite:  bool(rec.IsFavorite),
			CreatedAt:   createdAt,
			UpdatedAt:   updatedAt,
		}
		if err := target.InsertImportedPrompt(ctx, p); err != nil {
			return mergeSkipped, err
		}
		return mergeInserted, nil
	}

	if !updatedAt.After(existing.UpdatedAt) {
		return mergeSkipped, nil
	}

	fav := bool(rec.IsFavorite)
	_, err = target.UpdatePrompt(ctx, rec.UUID, models.UpdatePromptPayload{
		Title:       &rec.Title,
		Description: models.StringPtr(models.Deref(rec.Description)),
		Content:     &rec.Content,
		Tags:        models.StringPtr(models.Deref(rec.Tags)),
		Category:    models.StringPtr(models.Deref(rec.Category)),
		Language:    models.StringPtr(models.Deref(rec.Language)),
		IsFavorite:  &fav,
	})
	if err != nil {
		return mergeSkipped, err
	}
	return mergeUpdated, nil
}

func timeOr(raw string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return models.ParseTime(raw)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
