package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store"
)

const uuidLength = 36

// matchPrefix expands an id prefix to the one id it identifies
func matchPrefix(kind, prefix string, ids []string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("%s ID is required", kind)
	}
	var found []string
	for _, id := range ids {
		if strings.HasPrefix(id, prefix) {
			found = append(found, id)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%s with ID prefix '%s' not found", kind, prefix)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("ID prefix '%s' matches %d %ss, use more characters", prefix, len(found), kind)
	}
}

// resolver expands the short ids printed in tables. Full uuids pass through
// untouched so a missing record still reports the store's own error.
type resolver struct {
	store store.Store
}

func (r resolver) resolve(ctx context.Context, kind, arg string, all func(context.Context) ([]string, error)) (string, error) {
	if len(strings.TrimSpace(arg)) == uuidLength {
		return strings.TrimSpace(arg), nil
	}
	ids, err := all(ctx)
	if err != nil {
		return "", err
	}
	return matchPrefix(kind, arg, ids)
}

func (r resolver) prompt(ctx context.Context, arg string) (string, error) {
	return r.resolve(ctx, "prompt", arg, func(ctx context.Context) ([]string, error) {
		prompts, err := r.store.ExportPrompts(ctx)
		return idsOf(prompts, func(p models.ExportedPrompt) string { return p.UUID }), err
	})
}

func (r resolver) category(ctx context.Context, arg string) (string, error) {
	return r.resolve(ctx, "category", arg, func(ctx context.Context) ([]string, error) {
		categories, err := r.store.ListCategories(ctx)
		return idsOf(categories, func(c models.Category) string { return c.UUID }), err
	})
}

func (r resolver) group(ctx context.Context, arg string) (string, error) {
	return r.resolve(ctx, "group", arg, func(ctx context.Context) ([]string, error) {
		snap, ok := r.store.(store.Snapshot)
		if !ok {
			return nil, fmt.Errorf("this backend needs full group IDs")
		}
		groups, err := snap.AllGroups(ctx)
		return idsOf(groups, func(g models.Group) string { return g.UUID }), err
	})
}

func (r resolver) managementPrompt(ctx context.Context, arg string) (string, error) {
	return r.resolve(ctx, "management prompt", arg, func(ctx context.Context) ([]string, error) {
		snap, ok := r.store.(store.Snapshot)
		if !ok {
			return nil, fmt.Errorf("this backend needs full management prompt IDs")
		}
		prompts, err := snap.AllManagementPrompts(ctx)
		return idsOf(prompts, func(m models.ManagementPrompt) string { return m.UUID }), err
	})
}

func (r resolver) result(ctx context.Context, arg string) (string, error) {
	return r.resolve(ctx, "result", arg, func(ctx context.Context) ([]string, error) {
		snap, ok := r.store.(store.Snapshot)
		if !ok {
			return nil, fmt.Errorf("this backend needs full result IDs")
		}
		results, err := snap.AllPromptResults(ctx)
		return idsOf(results, func(pr models.PromptResult) string { return pr.UUID }), err
	})
}

func idsOf[T any](records []T, id func(T) string) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = id(rec)
	}
	return ids
}
