package mcp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/facade"
	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/variables"
)

// catalogEntry is a management prompt with its ancestors
type catalogEntry struct {
	category models.Category
	group    models.Group
	prompt   models.ManagementPrompt
}

// catalog walks Category > Group > ManagementPrompt in display order
func (b *Bridge) catalog(ctx context.Context) ([]catalogEntry, error) {
	categories, err := b.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	var entries []catalogEntry
	for _, c := range categories {
		groups, err := b.store.ListGroups(ctx, c.UUID)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			prompts, err := b.store.ListManagementPrompts(ctx, g.UUID)
			if err != nil {
				return nil, err
			}
			for _, p := range prompts {
				entries = append(entries, catalogEntry{category: c, group: g, prompt: p})
			}
		}
	}
	return entries, nil
}

func (b *Bridge) resolveManagementPrompt(ctx context.Context, name string) (*catalogEntry, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("uuid or name is required")
	}
	entries, err := b.catalog(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.prompt.Name
	}
	ranked := matchNames(names, name)
	if len(ranked) == 0 {
		return nil, apperr.NotFound("ManagementPrompt not found")
	}
	return &entries[ranked[0]], nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// promptName builds a stable MCP prompt name such as "blog-outline-1a2b3c4d"
func promptName(p models.ManagementPrompt) string {
	slug := strings.Trim(slugInvalid.ReplaceAllString(strings.ToLower(p.Name), "-"), "-")
	short := p.UUID
	if len(short) > 8 {
		short = short[:8]
	}
	if slug == "" {
		return short
	}
	return slug + "-" + short
}

// registerPrompts adds every management prompt as an MCP prompt. Its
// arguments are the placeholders the group's variables leave open.
func (b *Bridge) registerPrompts(ctx context.Context, server *mcp.Server) (int, error) {
	entries, err := b.catalog(ctx)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		var args []*mcp.PromptArgument
		for _, name := range variables.Missing(e.prompt.Content, e.group.GlobalVariables) {
			args = append(args, &mcp.PromptArgument{
				Name:        name,
				Description: fmt.Sprintf("Value for {{%s}}", name),
				Required:    true,
			})
		}
		server.AddPrompt(&mcp.Prompt{
			Name:        promptName(e.prompt),
			Title:       e.prompt.Name,
			Description: fmt.Sprintf("%s / %s / %s", e.category.Name, e.group.Name, e.prompt.Name),
			Arguments:   args,
		}, b.promptHandler(e.prompt.UUID))
	}
	return len(entries), nil
}

func (b *Bridge) promptHandler(uuid string) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		out, err := facade.Render(ctx, b.store, uuid, req.Params.Arguments)
		if err != nil {
			return nil, err
		}
		if len(out.Missing) > 0 {
			return nil, fmt.Errorf("missing arguments: %s", strings.Join(out.Missing, ", "))
		}
		return &mcp.GetPromptResult{
			Description: out.Name,
			Messages: []*mcp.PromptMessage{
				{
					Role:    "user",
					Content: &mcp.TextContent{Text: out.Content},
				},
			},
		}, nil
	}
}
