package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/facade"
	"github.com/kutbudev/promptvault/internal/models"
)

// registerTools registers the MCP tools. The SDK infers each InputSchema
// from the handler's input struct.
func (b *Bridge) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_prompts",
		Description: "List prompts in the library, most recently updated first unless sort/order say otherwise.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "List Prompts",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}, b.handleListPrompts)

	mcp.AddTool(server, &mcp.Tool{
		Name: "search_prompts",
		Description: `Search prompts by text, category label or tag.

q matches title, description and content (case-insensitive substring).
mode "fts" uses the full-text index where the backend has one.

Example: search_prompts(q: "code review")`,
		Annotations: &mcp.ToolAnnotations{
			Title:         "Search Prompts",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}, b.handleSearchPrompts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_prompt",
		Description: "Get one prompt with its full content.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "Get Prompt",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}, b.handleGetPrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name: "create_prompt",
		Description: `Save a new prompt to the library.

REQUIRED: title, content
If a prompt with very similar content exists, nothing is saved and the
similar prompts are returned. Set force to save anyway.`,
		Annotations: &mcp.ToolAnnotations{
			Title:           "Create Prompt",
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, b.handleCreatePrompt)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List management categories, the top level of Category > Group > Prompt.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "List Categories",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}, b.handleListCategories)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_groups",
		Description: "List the groups of a category with their management prompts and global variables.",
		Annotations: &mcp.ToolAnnotations{
			Title:         "List Groups",
			ReadOnlyHint:  true,
			OpenWorldHint: boolPtr(false),
		},
	}, b.handleListGroups)

	mcp.AddTool(server, &mcp.Tool{
		Name: "render_management_prompt",
		Description: `Expand a management prompt's {{placeholders}}.

Identify it by uuid, or by name (matched loosely). Group variables apply
first and your variables override them. "missing" lists placeholders
nobody filled.`,
		Annotations: &mcp.ToolAnnotations{
			Title:          "Render Management Prompt",
			ReadOnlyHint:   true,
			IdempotentHint: true,
			OpenWorldHint:  boolPtr(false),
		},
	}, b.handleRender)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_prompt_result",
		Description: "Store the output produced by running a management prompt.",
		Annotations: &mcp.ToolAnnotations{
			Title:           "Save Prompt Result",
			DestructiveHint: boolPtr(false),
			OpenWorldHint:   boolPtr(false),
		},
	}, b.handleSaveResult)
}

type ListPromptsInput struct {
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of prompts, default 100"`
	Offset int    `json:"offset,omitempty"`
	Sort   string `json:"sort,omitempty" jsonschema:"updated_at, created_at or title"`
	Order  string `json:"order,omitempty" jsonschema:"asc or desc"`
}

func (b *Bridge) handleListPrompts(ctx context.Context, _ *mcp.CallToolRequest, input ListPromptsInput) (*mcp.CallToolResult, map[string]any, error) {
	prompts, err := b.store.ListPrompts(ctx, models.ListPromptsParams{
		Limit:  input.Limit,
		Offset: input.Offset,
		Sort:   input.Sort,
		Order:  input.Order,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, wrapResultAsObject(prompts), nil
}

type SearchPromptsInput struct {
	Query    string `json:"q,omitempty" jsonschema:"text to look for"`
	Category string `json:"category,omitempty" jsonschema:"exact category label"`
	Tag      string `json:"tag,omitempty" jsonschema:"tag contained in the prompt's tags"`
	Mode     string `json:"mode,omitempty" jsonschema:"contains (default) or fts"`
	Limit    int    `json:"limit,omitempty"`
}

func (b *Bridge) handleSearchPrompts(ctx context.Context, _ *mcp.CallToolRequest, input SearchPromptsInput) (*mcp.CallToolResult, map[string]any, error) {
	prompts, err := b.store.SearchPrompts(ctx, models.SearchPromptsParams{
		Query:    input.Query,
		Category: input.Category,
		Tag:      input.Tag,
		Mode:     input.Mode,
		Limit:    input.Limit,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, wrapResultAsObject(prompts), nil
}

type UUIDInput struct {
	UUID string `json:"uuid"`
}

func (b *Bridge) handleGetPrompt(ctx context.Context, _ *mcp.CallToolRequest, input UUIDInput) (*mcp.CallToolResult, map[string]any, error) {
	id := strings.TrimSpace(input.UUID)
	if id == "" {
		return nil, nil, errors.New("uuid is required")
	}
	p, err := b.store.GetPrompt(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		return nil, nil, apperr.NotFound("Prompt not found")
	}
	return nil, wrapResultAsObject(p), nil
}

type CreatePromptInput struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Description string `json:"description,omitempty"`
	Tags        string `json:"tags,omitempty" jsonschema:"comma-separated tags"`
	Category    string `json:"category,omitempty" jsonschema:"free-text category label"`
	Language    string `json:"language,omitempty"`
	IsFavorite  bool   `json:"is_favorite,omitempty"`
	Force       bool   `json:"force,omitempty" jsonschema:"save even when a similar prompt exists"`
}

func (b *Bridge) handleCreatePrompt(ctx context.Context, _ *mcp.CallToolRequest, input CreatePromptInput) (*mcp.CallToolResult, map[string]any, error) {
	if !input.Force {
		existing, err := b.store.ExportPrompts(ctx)
		if err != nil {
			return nil, nil, err
		}
		if similar := FindSimilarPrompts(existing, input.Content, SimilarityThreshold); len(similar) > 0 {
			b.logger.Info("Similar prompt exists, not saving", zap.String("uuid", similar[0].UUID))
			return nil, map[string]any{
				"created": false,
				"message": "Similar prompts already exist. Reuse one or call again with force: true.",
				"similar": similar,
			}, nil
		}
	}

	favorite := input.IsFavorite
	p, err := b.store.CreatePrompt(ctx, models.CreatePromptPayload{
		Title:       input.Title,
		Content:     input.Content,
		Description: optional(input.Description),
		Tags:        optional(input.Tags),
		Category:    optional(input.Category),
		Language:    optional(input.Language),
		IsFavorite:  &favorite,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, map[string]any{"created": true, "prompt": p}, nil
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

type EmptyInput struct{}

func (b *Bridge) handleListCategories(ctx context.Context, _ *mcp.CallToolRequest, _ EmptyInput) (*mcp.CallToolResult, map[string]any, error) {
	categories, err := b.store.ListCategories(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, wrapResultAsObject(categories), nil
}

type ListGroupsInput struct {
	CategoryUUID string `json:"category_uuid"`
}

type groupView struct {
	models.Group
	Prompts []models.ManagementPrompt `json:"prompts"`
}

func (b *Bridge) handleListGroups(ctx context.Context, _ *mcp.CallToolRequest, input ListGroupsInput) (*mcp.CallToolResult, map[string]any, error) {
	id := strings.TrimSpace(input.CategoryUUID)
	if id == "" {
		return nil, nil, errors.New("category_uuid is required")
	}
	groups, err := b.store.ListGroups(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	views := make([]groupView, 0, len(groups))
	for _, g := range groups {
		prompts, err := b.store.ListManagementPrompts(ctx, g.UUID)
		if err != nil {
			return nil, nil, err
		}
		views = append(views, groupView{Group: g, Prompts: prompts})
	}
	return nil, wrapResultAsObject(views), nil
}

type RenderInput struct {
	UUID      string            `json:"uuid,omitempty"`
	Name      string            `json:"name,omitempty" jsonschema:"management prompt name, used when uuid is empty"`
	Variables map[string]string `json:"variables,omitempty" jsonschema:"placeholder values overriding group variables"`
}

func (b *Bridge) handleRender(ctx context.Context, _ *mcp.CallToolRequest, input RenderInput) (*mcp.CallToolResult, map[string]any, error) {
	id := strings.TrimSpace(input.UUID)
	if id == "" {
		entry, err := b.resolveManagementPrompt(ctx, input.Name)
		if err != nil {
			return nil, nil, err
		}
		id = entry.prompt.UUID
	}
	out, err := facade.Render(ctx, b.store, id, input.Variables)
	if err != nil {
		return nil, nil, err
	}
	return nil, wrapResultAsObject(out), nil
}

type SaveResultInput struct {
	PromptUUID string `json:"prompt_uuid" jsonschema:"uuid of the management prompt that produced the output"`
	Content    string `json:"content"`
}

func (b *Bridge) handleSaveResult(ctx context.Context, _ *mcp.CallToolRequest, input SaveResultInput) (*mcp.CallToolResult, map[string]any, error) {
	res, err := b.store.CreatePromptResult(ctx, models.CreatePromptResultPayload{
		PromptUUID: input.PromptUUID,
		Content:    input.Content,
	})
	if err != nil {
		return nil, nil, err
	}
	return nil, wrapResultAsObject(res), nil
}
