package facade

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store/sqlite"
)

func newFacade(t *testing.T, opts ...Option) (*Facade, *sqlite.Store) {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "vault.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, opts...), s
}

type fakePicker struct {
	path      string
	err       error
	suggested string
}

func (p *fakePicker) SavePath(_ context.Context, defaultName string) (string, error) {
	p.suggested = defaultName
	return p.path, p.err
}

func (p *fakePicker) OpenPath(context.Context) (string, error) {
	return p.path, p.err
}

func TestOperationsCoverEveryNoun(t *testing.T) {
	f, _ := newFacade(t)
	ops := f.Operations()
	for _, name := range []string{
		"prompt:create", "prompt:update", "prompt:delete", "prompt:get", "prompt:list",
		"prompt:search", "prompt:export", "prompt:import", "prompt:reveal-db",
		"category:create", "category:update", "category:delete", "category:get", "category:list",
		"group:create", "group:update", "group:delete", "group:get", "group:list", "group:reorder",
		"management-prompt:create", "management-prompt:update", "management-prompt:delete",
		"management-prompt:get", "management-prompt:list", "management-prompt:reorder",
		"management-prompt:render",
		"prompt-result:create", "prompt-result:update", "prompt-result:delete",
		"prompt-result:get", "prompt-result:list",
		"migrate:to-remote", "config:test-connection",
	} {
		assert.Contains(t, ops, name)
	}
	assert.IsIncreasing(t, ops)
}

func TestPromptOperations(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)

	resp := f.Call(ctx, "prompt:create", models.CreatePromptPayload{Title: "Greeting", Content: "Hello"})
	require.True(t, resp.Success, "%+v", resp.Error)
	created := resp.Data.(*models.Prompt)

	title := "Greeting v2"
	resp = f.Call(ctx, "prompt:update", map[string]any{
		"uuid":    created.UUID,
		"payload": models.UpdatePromptPayload{Title: &title},
	})
	require.True(t, resp.Success)
	assert.Equal(t, "Greeting v2", resp.Data.(*models.Prompt).Title)

	resp = f.Call(ctx, "prompt:list", models.ListPromptsParams{})
	require.True(t, resp.Success)
	assert.Len(t, resp.Data.([]models.Prompt), 1)

	resp = f.Call(ctx, "prompt:search", models.SearchPromptsParams{Query: "v2"})
	require.True(t, resp.Success)
	assert.Len(t, resp.Data.([]models.Prompt), 1)

	resp = f.Call(ctx, "prompt:delete", map[string]string{"uuid": created.UUID})
	require.True(t, resp.Success)
	assert.Equal(t, true, resp.Data)

	resp = f.Call(ctx, "prompt:get", map[string]string{"uuid": created.UUID})
	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "NOT_FOUND: Prompt not found", resp.Error.Message)
}

func TestErrorCodes(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)

	tests := []struct {
		name string
		op   string
		args string
		code string
	}{
		{"unknown operation", "prompt:launch", `{}`, "VALIDATION_ERROR"},
		{"malformed args", "prompt:create", `{"title": 1}`, "VALIDATION_ERROR"},
		{"missing title", "prompt:create", `{"content": "x"}`, "VALIDATION_ERROR"},
		{"missing uuid", "category:get", `{}`, "VALIDATION_ERROR"},
		{"delete missing", "category:delete", `{"uuid": "nope"}`, "NOT_FOUND"},
		{"orphan group", "group:create", `{"category_uuid": "nope", "name": "G"}`, "NOT_FOUND"},
		{"list without parent", "group:list", `{}`, "VALIDATION_ERROR"},
		{"reorder blank uuid", "group:reorder", `{"items": [{"uuid": "", "display_order": 1}]}`, "VALIDATION_ERROR"},
		{"migrate without migrator", "migrate:to-remote", ``, "VALIDATION_ERROR"},
		{"export without picker", "prompt:export", `{}`, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.Handle(ctx, Request{Operation: tt.op, Args: json.RawMessage(tt.args)})
			require.False(t, resp.Success)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestUpdateWithExplicitNulls(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)

	resp := f.Call(ctx, "prompt:create", models.CreatePromptPayload{
		Title: "Greeting", Content: "Hello", Description: models.StringPtr("D"), Tags: models.StringPtr("a,b"),
	})
	require.True(t, resp.Success, "%+v", resp.Error)
	created := resp.Data.(*models.Prompt)

	update := func(payload string) Response {
		return f.Handle(ctx, Request{
			Operation: "prompt:update",
			Args:      json.RawMessage(`{"uuid": "` + created.UUID + `", "payload": ` + payload + `}`),
		})
	}

	for _, payload := range []string{`{"title": null}`, `{"content": null}`, `{"is_favorite": null}`} {
		resp = update(payload)
		require.False(t, resp.Success, payload)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code, payload)
	}

	time.Sleep(5 * time.Millisecond)
	resp = update(`{"description": null, "tags": null}`)
	require.True(t, resp.Success, "%+v", resp.Error)
	cleared := resp.Data.(*models.Prompt)
	assert.Nil(t, cleared.Description)
	assert.Nil(t, cleared.Tags)
	assert.Equal(t, "Greeting", cleared.Title)
	assert.True(t, cleared.UpdatedAt.After(created.UpdatedAt))

	resp = f.Call(ctx, "category:create", models.CreateCategoryPayload{Name: "Writing", Description: models.StringPtr("D")})
	require.True(t, resp.Success)
	cat := resp.Data.(*models.Category)

	resp = f.Handle(ctx, Request{
		Operation: "category:update",
		Args:      json.RawMessage(`{"uuid": "` + cat.UUID + `", "payload": {"name": null}}`),
	})
	require.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)

	resp = f.Handle(ctx, Request{
		Operation: "category:update",
		Args:      json.RawMessage(`{"uuid": "` + cat.UUID + `", "payload": {"description": null}}`),
	})
	require.True(t, resp.Success, "%+v", resp.Error)
	assert.Nil(t, resp.Data.(*models.Category).Description)

	resp = f.Call(ctx, "group:create", models.CreateGroupPayload{
		CategoryUUID: cat.UUID, Name: "G", GlobalVariables: models.Variables{"tone": "formal"},
	})
	require.True(t, resp.Success)
	group := resp.Data.(*models.Group)

	resp = f.Handle(ctx, Request{
		Operation: "group:update",
		Args:      json.RawMessage(`{"uuid": "` + group.UUID + `", "payload": {"global_variables": null}}`),
	})
	require.True(t, resp.Success, "%+v", resp.Error)
	assert.Empty(t, resp.Data.(*models.Group).GlobalVariables)

	resp = f.Handle(ctx, Request{
		Operation: "group:update",
		Args:      json.RawMessage(`{"uuid": "` + group.UUID + `", "payload": {"display_order": null}}`),
	})
	require.False(t, resp.Success)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestFailCodeForUnclassifiedErrors(t *testing.T) {
	f, s := newFacade(t)
	require.NoError(t, s.Close())

	resp := f.Call(context.Background(), "category:list", nil)
	require.False(t, resp.Success)
	assert.Equal(t, CodeListFailed, resp.Error.Code)

	resp = f.Call(context.Background(), "config:test-connection", nil)
	require.False(t, resp.Success)
	assert.Equal(t, CodeConnectionFailed, resp.Error.Code)
}

func TestHierarchyOperations(t *testing.T) {
	ctx := context.Background()
	f, _ := newFacade(t)

	resp := f.Call(ctx, "category:create", models.CreateCategoryPayload{Name: "Writing"})
	require.True(t, resp.Success)
	cat := resp.Data.(*models.Category)

	var groups []*models.Group
	for _, name := range []string{"A", "B"} {
		resp = f.Call(ctx, "group:create", models.CreateGroupPayload{CategoryUUID: cat.UUID, Name: name})
		require.True(t, resp.Success)
		groups = append(groups, resp.Data.(*models.Group))
	}

	resp = f.Call(ctx, "group:reorder", map[string]any{"items": []models.ReorderItem{
		{UUID: groups[0].UUID, DisplayOrder: 2},
		{UUID: groups[1].UUID, DisplayOrder: 1},
	}})
	require.True(t, resp.Success)

	resp = f.Call(ctx, "group:list", map[string]string{"category_uuid": cat.UUID})
	require.True(t, resp.Success)
	listed := resp.Data.([]models.Group)
	require.Len(t, listed, 2)
	assert.Equal(t, "B", listed[0].Name)

	resp = f.Call(ctx, "management-prompt:create", models.CreateManagementPromptPayload{
		GroupUUID: groups[0].UUID, Name: "Outline", Content: "Outline",
	})
	require.True(t, resp.Success)
	mp := resp.Data.(*models.ManagementPrompt)

	resp = f.Call(ctx, "prompt-result:create", models.CreatePromptResultPayload{PromptUUID: mp.UUID, Content: "done"})
	require.True(t, resp.Success)

	resp = f.Call(ctx, "prompt-result:list", map[string]string{"prompt_uuid": mp.UUID})
	require.True(t, resp.Success)
	assert.Len(t, resp.Data.([]models.PromptResult), 1)

	resp = f.Call(ctx, "category:delete", map[string]string{"uuid": cat.UUID})
	require.True(t, resp.Success)

	resp = f.Call(ctx, "management-prompt:get", map[string]string{"uuid": mp.UUID})
	require.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND: ManagementPrompt not found", resp.Error.Message)
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	f, s := newFacade(t)

	cat, err := s.CreateCategory(ctx, models.CreateCategoryPayload{Name: "Writing"})
	require.NoError(t, err)
	g, err := s.CreateGroup(ctx, models.CreateGroupPayload{
		CategoryUUID:    cat.UUID,
		Name:            "Blog",
		GlobalVariables: models.Variables{"audience": "devs", "tone": "dry"},
	})
	require.NoError(t, err)
	mp, err := s.CreateManagementPrompt(ctx, models.CreateManagementPromptPayload{
		GroupUUID: g.UUID,
		Name:      "Post",
		Content:   "Write for {{audience}} in a {{tone}} tone about {{topic}}",
	})
	require.NoError(t, err)

	resp := f.Call(ctx, "management-prompt:render", map[string]any{
		"uuid":      mp.UUID,
		"variables": map[string]string{"tone": "warm"},
	})
	require.True(t, resp.Success)
	out := resp.Data.(*RenderResult)
	assert.Equal(t, "Write for devs in a warm tone about {{topic}}", out.Content)
	assert.Equal(t, []string{"topic"}, out.Missing)

	full, err := Render(ctx, s, mp.UUID, map[string]string{"topic": "Go"})
	require.NoError(t, err)
	assert.Equal(t, "Write for devs in a dry tone about Go", full.Content)
	assert.Empty(t, full.Missing)

	_, err = Render(ctx, s, "missing", nil)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestExportImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	picker := &fakePicker{path: filepath.Join(dir, "picked.json")}
	clock := func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }
	f, s := newFacade(t, WithFilePicker(picker), WithClock(clock))

	_, err := s.CreatePrompt(ctx, models.CreatePromptPayload{Title: "One", Content: "1"})
	require.NoError(t, err)

	resp := f.Call(ctx, "prompt:export", nil)
	require.True(t, resp.Success, "%+v", resp.Error)
	assert.Equal(t, "prompts-export-2024-03-09.json", picker.suggested)

	data, err := os.ReadFile(picker.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"uuid\"")

	other, _ := newFacade(t)
	resp = other.Call(ctx, "prompt:import", map[string]string{"path": picker.path})
	require.True(t, resp.Success)
	assert.Equal(t, models.ImportStats{Imported: 1}, resp.Data)

	resp = other.Call(ctx, "prompt:import", map[string]string{"path": picker.path})
	require.True(t, resp.Success)
	assert.Equal(t, models.ImportStats{Skipped: 1}, resp.Data)
}

func TestImportRejectsMalformedFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	f, _ := newFacade(t)

	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{{{`},
		{"object", `{"uuid": "a"}`},
		{"array of strings", `["a", "b"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "in.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			resp := f.Call(ctx, "prompt:import", map[string]string{"path": path})
			require.False(t, resp.Success)
			assert.Equal(t, "INVALID_FORMAT", resp.Error.Code)
		})
	}
}

func TestImportCountsUndecodableRecordsAsSkipped(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "in.json")
	content := `[
  {"uuid": "7b0c6a0e-4a55-4b8e-9d53-0f7c9d0c3b11", "title": "Ok", "content": "x", "is_favorite": 1},
  {"uuid": "8c1d7b1f-5b66-4c9f-8e64-1a8d0e1d4c22", "title": 42, "content": "x"}
]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	f, s := newFacade(t)
	resp := f.Call(ctx, "prompt:import", map[string]string{"path": path})
	require.True(t, resp.Success, "%+v", resp.Error)
	assert.Equal(t, models.ImportStats{Imported: 1, Skipped: 1}, resp.Data)

	p, err := s.GetPrompt(ctx, "7b0c6a0e-4a55-4b8e-9d53-0f7c9d0c3b11")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.True(t, p.IsFavorite)
}

func TestPickerAbortIsCancelled(t *testing.T) {
	f, _ := newFacade(t, WithFilePicker(&fakePicker{err: apperr.Cancelled("Export cancelled")}))
	resp := f.Call(context.Background(), "prompt:import", nil)
	require.False(t, resp.Success)
	assert.Equal(t, "CANCELLED", resp.Error.Code)
}

func TestMigrateAndConnection(t *testing.T) {
	ctx := context.Background()
	want := models.MigrationResult{Prompts: 3, Errors: []string{}}
	f, s := newFacade(t,
		WithMigrator(MigratorFunc(func(context.Context) (models.MigrationResult, error) { return want, nil })))

	resp := f.Call(ctx, "migrate:to-remote", nil)
	require.True(t, resp.Success)
	assert.Equal(t, want, resp.Data)

	resp = f.Call(ctx, "config:test-connection", nil)
	require.True(t, resp.Success)
	assert.Equal(t, map[string]any{"connected": true, "location": s.Location()}, resp.Data)

	resp = f.Call(ctx, "prompt:reveal-db", nil)
	require.True(t, resp.Success)
	assert.Equal(t, s.Location(), resp.Data)

	failing := New(s, WithMigrator(MigratorFunc(func(context.Context) (models.MigrationResult, error) {
		return models.MigrationResult{}, errors.New("target connection failed: refused")
	})))
	resp = failing.Call(ctx, "migrate:to-remote", nil)
	require.False(t, resp.Success)
	assert.Equal(t, CodeMigrationFailed, resp.Error.Code)
}
