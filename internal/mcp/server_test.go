package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/store/sqlite"
)

type fixture struct {
	store   *sqlite.Store
	session *mcp.ClientSession
	prompt  *models.Prompt
	mp      *models.ManagementPrompt
	cat     *models.Category
}

// connect seeds a store, builds the server and attaches an in-memory client
func connect(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "vault.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p, err := s.CreatePrompt(ctx, models.CreatePromptPayload{
		Title:   "Code Review",
		Content: "Review this pull request for bugs and style issues",
		Tags:    models.StringPtr("review,go"),
	})
	require.NoError(t, err)
	cat, err := s.CreateCategory(ctx, models.CreateCategoryPayload{Name: "Writing"})
	require.NoError(t, err)
	g, err := s.CreateGroup(ctx, models.CreateGroupPayload{
		CategoryUUID:    cat.UUID,
		Name:            "Blog",
		GlobalVariables: models.Variables{"audience": "developers"},
	})
	require.NoError(t, err)
	mp, err := s.CreateManagementPrompt(ctx, models.CreateManagementPromptPayload{
		GroupUUID: g.UUID,
		Name:      "Blog Outline",
		Content:   "Outline a post about {{topic}} for {{audience}}",
	})
	require.NoError(t, err)

	server, err := NewServer(ctx, s, "test", nil)
	require.NoError(t, err)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })

	return &fixture{store: s, session: cs, prompt: p, mp: mp, cat: cat}
}

// callTool returns the decoded JSON object of a successful tool call
func (f *fixture) callTool(t *testing.T, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := f.session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError, "tool %s failed: %+v", name, res.Content)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestToolsAreListed(t *testing.T) {
	f := connect(t)
	res, err := f.session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_prompts", "search_prompts", "get_prompt", "create_prompt",
		"list_categories", "list_groups", "render_management_prompt", "save_prompt_result",
	}, names)
}

func TestListAndSearchPrompts(t *testing.T) {
	f := connect(t)

	out := f.callTool(t, "list_prompts", map[string]any{})
	assert.EqualValues(t, 1, out["count"])

	out = f.callTool(t, "search_prompts", map[string]any{"q": "pull request"})
	assert.EqualValues(t, 1, out["count"])

	out = f.callTool(t, "search_prompts", map[string]any{"tag": "python"})
	assert.EqualValues(t, 0, out["count"])

	out = f.callTool(t, "get_prompt", map[string]any{"uuid": f.prompt.UUID})
	assert.Equal(t, "Code Review", out["title"])
}

func TestGetPromptMissing(t *testing.T) {
	f := connect(t)
	res, err := f.session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "get_prompt",
		Arguments: map[string]any{"uuid": "00000000-0000-4000-8000-000000000000"},
	})
	if err == nil {
		assert.True(t, res.IsError)
	}
}

func TestCreatePromptDetectsDuplicates(t *testing.T) {
	f := connect(t)

	out := f.callTool(t, "create_prompt", map[string]any{
		"title":   "Review again",
		"content": "Review this pull request for bugs and style issues",
	})
	assert.Equal(t, false, out["created"])
	assert.NotEmpty(t, out["similar"])

	out = f.callTool(t, "create_prompt", map[string]any{
		"title":   "Review again",
		"content": "Review this pull request for bugs and style issues",
		"force":   true,
	})
	assert.Equal(t, true, out["created"])

	out = f.callTool(t, "create_prompt", map[string]any{
		"title":    "Haiku",
		"content":  "Write a haiku about autumn leaves",
		"category": "fun",
	})
	assert.Equal(t, true, out["created"])

	all, err := f.store.ExportPrompts(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestHierarchyTools(t *testing.T) {
	f := connect(t)

	out := f.callTool(t, "list_categories", map[string]any{})
	assert.EqualValues(t, 1, out["count"])

	out = f.callTool(t, "list_groups", map[string]any{"category_uuid": f.cat.UUID})
	items := out["items"].([]any)
	require.Len(t, items, 1)
	group := items[0].(map[string]any)
	assert.Equal(t, "Blog", group["name"])
	assert.Len(t, group["prompts"], 1)
}

func TestRenderAndSaveResult(t *testing.T) {
	f := connect(t)

	out := f.callTool(t, "render_management_prompt", map[string]any{
		"name":      "blog-outline",
		"variables": map[string]any{"topic": "generics"},
	})
	assert.Equal(t, "Outline a post about generics for developers", out["content"])
	assert.Empty(t, out["missing"])

	out = f.callTool(t, "render_management_prompt", map[string]any{"uuid": f.mp.UUID})
	assert.Equal(t, []any{"topic"}, out["missing"])

	out = f.callTool(t, "save_prompt_result", map[string]any{
		"prompt_uuid": f.mp.UUID,
		"content":     "1. Why generics",
	})
	assert.Equal(t, "1. Why generics", out["content"])

	results, err := f.store.ListPromptResults(context.Background(), f.mp.UUID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestManagementPromptsAsMCPPrompts(t *testing.T) {
	f := connect(t)
	ctx := context.Background()

	res, err := f.session.ListPrompts(ctx, &mcp.ListPromptsParams{})
	require.NoError(t, err)
	require.Len(t, res.Prompts, 1)
	p := res.Prompts[0]
	assert.Equal(t, promptName(*f.mp), p.Name)
	assert.Equal(t, "Writing / Blog / Blog Outline", p.Description)
	require.Len(t, p.Arguments, 1)
	assert.Equal(t, "topic", p.Arguments[0].Name)

	got, err := f.session.GetPrompt(ctx, &mcp.GetPromptParams{
		Name:      p.Name,
		Arguments: map[string]string{"topic": "testing"},
	})
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	text := got.Messages[0].Content.(*mcp.TextContent)
	assert.Equal(t, "Outline a post about testing for developers", text.Text)

	_, err = f.session.GetPrompt(ctx, &mcp.GetPromptParams{Name: p.Name})
	assert.Error(t, err)
}

func TestResources(t *testing.T) {
	f := connect(t)
	ctx := context.Background()

	res, err := f.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: promptsURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, "Code Review")

	res, err = f.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: promptURIPrefix + f.prompt.UUID})
	require.NoError(t, err)
	assert.Contains(t, res.Contents[0].Text, f.prompt.UUID)

	_, err = f.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: promptURIPrefix + "missing"})
	assert.Error(t, err)
}

func TestCompletion(t *testing.T) {
	f := connect(t)
	ctx := context.Background()

	res, err := f.session.Complete(ctx, &mcp.CompleteParams{
		Ref:      &mcp.CompleteReference{Type: "ref/prompt", Name: promptName(*f.mp)},
		Argument: mcp.CompleteParamsArgument{Name: "name", Value: "blgout"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Blog Outline"}, res.Completion.Values)

	res, err = f.session.Complete(ctx, &mcp.CompleteParams{
		Ref:      &mcp.CompleteReference{Type: "ref/prompt", Name: promptName(*f.mp)},
		Argument: mcp.CompleteParamsArgument{Name: "mode", Value: "f"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fts"}, res.Completion.Values)
}

func TestPromptName(t *testing.T) {
	assert.Equal(t, "blog-outline-1a2b3c4d",
		promptName(models.ManagementPrompt{Name: "Blog  Outline!", UUID: "1a2b3c4d-0000-4000-8000-000000000000"}))
	assert.Equal(t, "1a2b3c4d",
		promptName(models.ManagementPrompt{Name: "???", UUID: "1a2b3c4d-0000-4000-8000-000000000000"}))
}

func TestWrapResultAsObject(t *testing.T) {
	assert.Equal(t, map[string]any{"items": []any{}, "count": 0}, wrapResultAsObject(nil))
	assert.Equal(t, map[string]any{"items": []any{"a"}, "count": 1}, wrapResultAsObject([]string{"a"}))
	assert.Equal(t, map[string]any{"k": "v"}, wrapResultAsObject(struct {
		K string `json:"k"`
	}{"v"}))
}
