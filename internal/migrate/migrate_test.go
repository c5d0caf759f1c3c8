package migrate

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store/sqlite"
)

func openStore(t *testing.T, name string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), name), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed fills s with one record of every kind plus a deleted prompt
func seed(t *testing.T, s *sqlite.Store) (models.Prompt, models.Group, models.PromptResult) {
	t.Helper()
	ctx := context.Background()
	favorite := true

	p, err := s.CreatePrompt(ctx, models.CreatePromptPayload{
		Title:      "Summarize",
		Content:    "Summarize {{text}}",
		IsFavorite: &favorite,
	})
	require.NoError(t, err)

	gone, err := s.CreatePrompt(ctx, models.CreatePromptPayload{Title: "Old", Content: "old"})
	require.NoError(t, err)
	require.NoError(t, s.DeletePrompt(ctx, gone.UUID))

	cat, err := s.CreateCategory(ctx, models.CreateCategoryPayload{Name: "Writing"})
	require.NoError(t, err)
	order := 4
	g, err := s.CreateGroup(ctx, models.CreateGroupPayload{
		CategoryUUID:    cat.UUID,
		Name:            "Blog",
		DisplayOrder:    &order,
		GlobalVariables: models.Variables{"audience": "devs"},
	})
	require.NoError(t, err)
	mp, err := s.CreateManagementPrompt(ctx, models.CreateManagementPromptPayload{
		GroupUUID: g.UUID,
		Name:      "Outline",
		Content:   "Outline for {{audience}}",
	})
	require.NoError(t, err)
	res, err := s.CreatePromptResult(ctx, models.CreatePromptResultPayload{PromptUUID: mp.UUID, Content: "1. Intro"})
	require.NoError(t, err)

	return *p, *g, *res
}

func TestRunCopiesEverything(t *testing.T) {
	ctx := context.Background()
	source := openStore(t, "source.db")
	target := openStore(t, "target.db")
	p, g, res := seed(t, source)

	result, err := NewRunner(source, target, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.MigrationResult{
		Prompts: 1, Categories: 1, Groups: 1, ManagementPrompts: 1, PromptResults: 1,
		Errors: []string{},
	}, result)

	gotPrompt, err := target.GetPrompt(ctx, p.UUID)
	require.NoError(t, err)
	require.NotNil(t, gotPrompt)
	assert.True(t, gotPrompt.IsFavorite)

	gotGroup, err := target.GetGroup(ctx, g.UUID)
	require.NoError(t, err)
	require.NotNil(t, gotGroup)
	assert.Equal(t, 4, gotGroup.DisplayOrder)
	assert.Equal(t, models.Variables{"audience": "devs"}, gotGroup.GlobalVariables)

	gotResult, err := target.GetPromptResult(ctx, res.UUID)
	require.NoError(t, err)
	require.NotNil(t, gotResult)
	assert.Equal(t, "1. Intro", gotResult.Content)
}

func TestRunIsRepeatable(t *testing.T) {
	ctx := context.Background()
	source := openStore(t, "source.db")
	target := openStore(t, "target.db")
	seed(t, source)

	_, err := NewRunner(source, target, nil).Run(ctx)
	require.NoError(t, err)

	again, err := NewRunner(source, target, nil).Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Total())
	assert.Empty(t, again.Errors)

	all, err := target.AllPrompts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRunLeavesPromptsDeletedInTarget(t *testing.T) {
	ctx := context.Background()
	source := openStore(t, "source.db")
	target := openStore(t, "target.db")
	p, _, _ := seed(t, source)

	_, err := NewRunner(source, target, nil).Run(ctx)
	require.NoError(t, err)
	require.NoError(t, target.DeletePrompt(ctx, p.UUID))

	again, err := NewRunner(source, target, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Prompts)
	assert.Empty(t, again.Errors)

	got, err := target.GetPrompt(ctx, p.UUID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunCollectsRecordErrors(t *testing.T) {
	ctx := context.Background()
	source := openStore(t, "source.db")
	target := openStore(t, "target.db")
	_, g, _ := seed(t, source)

	// without its category every child down the chain fails
	view := &missingCategories{Store: source}

	result, err := NewRunner(view, target, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Categories)
	assert.Equal(t, 0, result.Groups)
	assert.Equal(t, 0, result.ManagementPrompts)
	assert.Equal(t, 0, result.PromptResults)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Error migrating Group "+g.UUID)
	assert.Contains(t, result.Errors[0], "Category not found")
}

type missingCategories struct {
	*sqlite.Store
}

func (m *missingCategories) AllCategories(context.Context) ([]models.Category, error) {
	return nil, nil
}

func TestRunStopsWhenTargetUnreachable(t *testing.T) {
	source := openStore(t, "source.db")
	target := openStore(t, "target.db")
	require.NoError(t, target.Close())

	_, err := NewRunner(source, target, nil).Run(context.Background())
	assert.ErrorContains(t, err, "target connection failed")
}

func TestRunSourceReadFailure(t *testing.T) {
	target := openStore(t, "target.db")
	source := &failingSource{Store: openStore(t, "source.db")}

	_, err := NewRunner(source, target, nil).Run(context.Background())
	assert.ErrorContains(t, err, "failed to read groups")
}

type failingSource struct {
	*sqlite.Store
}

func (f *failingSource) AllGroups(context.Context) ([]models.Group, error) {
	return nil, errors.New("disk on fire")
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	WriteSummary(&buf, models.MigrationResult{Prompts: 2, Errors: []string{"first", "second"}})
	out := buf.String()
	assert.Contains(t, out, "✓ Prompts: 2")
	assert.Contains(t, out, "2 errors occurred")
	assert.Contains(t, out, "  2. second")

	buf.Reset()
	WriteSummary(&buf, models.MigrationResult{})
	assert.Contains(t, buf.String(), "All records migrated successfully")
}
