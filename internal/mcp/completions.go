package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/models"
)

const maxCompletions = 20

// complete suggests values for tool, prompt and resource arguments
func (b *Bridge) complete(ctx context.Context, req *mcp.CompleteRequest) (*mcp.CompleteResult, error) {
	argName := req.Params.Argument.Name
	argValue := req.Params.Argument.Value

	var values []string
	switch argName {
	case "mode":
		values = completeStaticValues(argValue, []string{models.SearchContains, models.SearchFullText})
	case "sort":
		values = completeStaticValues(argValue, []string{"updated_at", "created_at", "title"})
	case "order":
		values = completeStaticValues(argValue, []string{"asc", "desc"})
	case "q", "title":
		values = b.completePromptTitles(ctx, argValue)
	case "name":
		values = b.completeManagementPromptNames(ctx, argValue)
	case "uuid":
		if req.Params.Ref != nil && req.Params.Ref.Type == "ref/resource" {
			values = b.completePromptUUIDs(ctx, argValue)
		}
	}
	if values == nil {
		values = []string{}
	}
	if len(values) > maxCompletions {
		values = values[:maxCompletions]
	}

	return &mcp.CompleteResult{
		Completion: mcp.CompletionResultDetails{
			Values:  values,
			Total:   len(values),
			HasMore: false,
		},
	}, nil
}

func (b *Bridge) completePromptTitles(ctx context.Context, value string) []string {
	prompts, err := b.store.ExportPrompts(ctx)
	if err != nil {
		b.logger.Debug("Completion lookup failed", zap.Error(err))
		return nil
	}
	titles := make([]string, len(prompts))
	for i, p := range prompts {
		titles[i] = p.Title
	}
	return fuzzyFilter(value, titles)
}

func (b *Bridge) completeManagementPromptNames(ctx context.Context, value string) []string {
	entries, err := b.catalog(ctx)
	if err != nil {
		b.logger.Debug("Completion lookup failed", zap.Error(err))
		return nil
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.prompt.Name
	}
	return fuzzyFilter(value, names)
}

func (b *Bridge) completePromptUUIDs(ctx context.Context, value string) []string {
	prompts, err := b.store.ExportPrompts(ctx)
	if err != nil {
		return nil
	}
	var ids []string
	for _, p := range prompts {
		if strings.HasPrefix(p.UUID, value) {
			ids = append(ids, p.UUID)
		}
	}
	return ids
}

// fuzzyFilter returns the distinct candidates matching value, best first.
// An empty value returns every candidate.
func fuzzyFilter(value string, candidates []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	if value == "" {
		for _, c := range candidates {
			add(c)
		}
		return out
	}
	for _, m := range fuzzy.Find(value, candidates) {
		add(m.Str)
	}
	return out
}

// completeStaticValues filters a static list of values by prefix
func completeStaticValues(prefix string, options []string) []string {
	prefix = strings.ToLower(prefix)
	if prefix == "" {
		return options
	}
	var matches []string
	for _, opt := range options {
		if strings.HasPrefix(strings.ToLower(opt), prefix) {
			matches = append(matches, opt)
		}
	}
	return matches
}
