// Package migrate copies every record of the embedded store into a remote
// store. The copy is one-directional and may be re-run: records whose uuid
// already exists in the target are skipped.
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/logging"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

// Record kinds, in the order they are migrated
const (
	KindPrompt           = "Prompt"
	KindCategory         = "Category"
	KindGroup            = "Group"
	KindManagementPrompt = "ManagementPrompt"
	KindPromptResult     = "PromptResult"
)

// Runner performs one migration
type Runner struct {
	source store.Snapshot
	target store.Store
	logger *zap.Logger
}

func NewRunner(source store.Snapshot, target store.Store, log *zap.Logger) *Runner {
	return &Runner{source: source, target: target, logger: logging.OrNop(log)}
}

// Run verifies the target is reachable and copies parents before children.
// Identities are preserved so children resolve their parents in the target.
// Timestamps are not: the target assigns its own. A prompt soft-deleted in
// the target counts as present and is not brought back. Per-record failures are
// collected in the result and do not stop the run; the returned error is
// reserved for an unreachable target, an unreadable source or cancellation.
func (r *Runner) Run(ctx context.Context) (models.MigrationResult, error) {
	result := models.MigrationResult{Errors: []string{}}

	if err := r.target.Ping(ctx); err != nil {
		return result, fmt.Errorf("target connection failed: %w", err)
	}
	r.logger.Info("Starting migration", zap.String("target", r.target.Location()))

	steps := []struct {
		kind    string
		run     func(context.Context, *models.MigrationResult) (int, error)
		counter *int
	}{
		{KindPrompt, r.prompts, &result.Prompts},
		{KindCategory, r.categories, &result.Categories},
		{KindGroup, r.groups, &result.Groups},
		{KindManagementPrompt, r.managementPrompts, &result.ManagementPrompts},
		{KindPromptResult, r.promptResults, &result.PromptResults},
	}
	for _, step := range steps {
		n, err := step.run(ctx, &result)
		*step.counter = n
		if err != nil {
			return result, err
		}
		r.logger.Info("Migrated", zap.String("kind", step.kind), zap.Int("count", n))
	}

	r.logger.Info("Migration completed",
		zap.Int("total", result.Total()),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

// copyAll walks records and creates those absent from the target. It stops
// only when ctx is done.
func copyAll[T any](
	ctx context.Context,
	r *Runner,
	result *models.MigrationResult,
	kind string,
	records []T,
	uuidOf func(T) string,
	exists func(context.Context, string) (bool, error),
	create func(context.Context, T) error,
) (int, error) {
	migrated := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return migrated, err
		}
		id := uuidOf(rec)

		found, err := exists(ctx, id)
		if err == nil && found {
			r.logger.Debug("Already present, skipping", zap.String("kind", kind), zap.String("uuid", id))
			continue
		}
		if err == nil {
			err = create(ctx, rec)
		}
		if err != nil {
			msg := fmt.Sprintf("Error migrating %s %s: %v", kind, id, err)
			r.logger.Error(msg)
			result.Errors = append(result.Errors, msg)
			continue
		}
		migrated++
	}
	return migrated, nil
}

func present[T any](get func(context.Context, string) (*T, error)) func(context.Context, string) (bool, error) {
	return func(ctx context.Context, uuid string) (bool, error) {
		v, err := get(ctx, uuid)
		return v != nil, err
	}
}

// promptPresent also matches soft-deleted prompts on targets that keep them
func (r *Runner) promptPresent(ctx context.Context, uuid string) (bool, error) {
	found, err := present(r.target.GetPrompt)(ctx, uuid)
	if err != nil || found {
		return found, err
	}
	if t, ok := r.target.(store.Tombstones); ok {
		return t.PromptDeleted(ctx, uuid)
	}
	return false, nil
}

func (r *Runner) prompts(ctx context.Context, result *models.MigrationResult) (int, error) {
	records, err := r.source.AllPrompts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read prompts: %w", err)
	}
	return copyAll(ctx, r, result, KindPrompt, records,
		func(p models.Prompt) string { return p.UUID },
		r.promptPresent,
		func(ctx context.Context, p models.Prompt) error {
			favorite := p.IsFavorite
			_, err := r.target.CreatePrompt(ctx, models.CreatePromptPayload{
				UUID:        p.UUID,
				Title:       p.Title,
				Description: p.Description,
				Content:     p.Content,
				Tags:        p.Tags,
				Category:    p.Category,
				Language:    p.Language,
				IsFavorite:  &favorite,
			})
			return err
		})
}

func (r *Runner) categories(ctx context.Context, result *models.MigrationResult) (int, error) {
	records, err := r.source.AllCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read categories: %w", err)
	}
	return copyAll(ctx, r, result, KindCategory, records,
		func(c models.Category) string { return c.UUID },
		present(r.target.GetCategory),
		func(ctx context.Context, c models.Category) error {
			_, err := r.target.CreateCategory(ctx, models.CreateCategoryPayload{
				UUID:        c.UUID,
				Name:        c.Name,
				Description: c.Description,
			})
			return err
		})
}

func (r *Runner) groups(ctx context.Context, result *models.MigrationResult) (int, error) {
	records, err := r.source.AllGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read groups: %w", err)
	}
	return copyAll(ctx, r, result, KindGroup, records,
		func(g models.Group) string { return g.UUID },
		present(r.target.GetGroup),
		func(ctx context.Context, g models.Group) error {
			order := g.DisplayOrder
			_, err := r.target.CreateGroup(ctx, models.CreateGroupPayload{
				UUID:            g.UUID,
				CategoryUUID:    g.CategoryUUID,
				Name:            g.Name,
				Description:     g.Description,
				DisplayOrder:    &order,
				GlobalVariables: g.GlobalVariables.Clone(),
			})
			return err
		})
}

func (r *Runner) managementPrompts(ctx context.Context, result *models.MigrationResult) (int, error) {
	records, err := r.source.AllManagementPrompts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read management prompts: %w", err)
	}
	return copyAll(ctx, r, result, KindManagementPrompt, records,
		func(m models.ManagementPrompt) string { return m.UUID },
		present(r.target.GetManagementPrompt),
		func(ctx context.Context, m models.ManagementPrompt) error {
			order := m.DisplayOrder
			_, err := r.target.CreateManagementPrompt(ctx, models.CreateManagementPromptPayload{
				UUID:         m.UUID,
				GroupUUID:    m.GroupUUID,
				Name:         m.Name,
				Content:      m.Content,
				DisplayOrder: &order,
			})
			return err
		})
}

func (r *Runner) promptResults(ctx context.Context, result *models.MigrationResult) (int, error) {
	records, err := r.source.AllPromptResults(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read prompt results: %w", err)
	}
	return copyAll(ctx, r, result, KindPromptResult, records,
		func(pr models.PromptResult) string { return pr.UUID },
		present(r.target.GetPromptResult),
		func(ctx context.Context, pr models.PromptResult) error {
			_, err := r.target.CreatePromptResult(ctx, models.CreatePromptResultPayload{
				UUID:       pr.UUID,
				PromptUUID: pr.PromptUUID,
				Content:    pr.Content,
			})
			return err
		})
}
