// Package mcp serves the prompt library to AI agents over the Model Context
// Protocol: prompts and the management hierarchy as tools, management prompts
// as MCP prompts and the library as resources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/kutbudev/promptvault/internal/logging"
	"github.com/kutbudev/promptvault/internal/store"
)

const instructions = `PromptVault - your prompt library

You are connected to the user's PromptVault. It holds two things:
- Prompts: reusable text prompts with tags, a free-text category and a language
- Management prompts: templates organised as Category > Group > Prompt, with
  {{placeholders}} filled from group variables and your own arguments

## Quick Reference
- FIND: search_prompts(q: "keywords") before writing a prompt from scratch
- READ: get_prompt(uuid) or the promptvault://prompts resources
- BROWSE: list_categories() then list_groups(category_uuid)
- RUN: render_management_prompt(uuid or name, variables) then
  save_prompt_result(prompt_uuid, content) to keep the output
- SAVE: create_prompt(title, content) warns about near-duplicates unless force is set`

// Bridge holds what tool, prompt and resource handlers need
type Bridge struct {
	store  store.Store
	logger *zap.Logger
}

// NewServer builds an MCP server over s. Management prompts are registered
// as MCP prompts from the records present at call time.
func NewServer(ctx context.Context, s store.Store, version string, log *zap.Logger) (*mcp.Server, error) {
	if s == nil {
		return nil, errors.New("store is required")
	}
	b := &Bridge{store: s, logger: logging.OrNop(log)}

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "promptvault",
			Version: version,
		},
		&mcp.ServerOptions{
			CompletionHandler: b.complete,
			Instructions:      instructions,
		},
	)

	b.registerTools(server)
	b.registerResources(server)
	n, err := b.registerPrompts(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("failed to register management prompts: %w", err)
	}
	b.logger.Info("MCP server ready", zap.Int("prompts", n), zap.String("store", s.Location()))
	return server, nil
}

// ServeStdio runs the MCP server over stdio until ctx is done or the client
// disconnects
func ServeStdio(ctx context.Context, s store.Store, version string, log *zap.Logger) error {
	server, err := NewServer(ctx, s, version, log)
	if err != nil {
		return err
	}
	return server.Run(ctx, &mcp.StdioTransport{})
}

// wrapResultAsObject ensures the result is always an object. MCP clients
// reject structured content that is a bare array.
func wrapResultAsObject(result any) map[string]any {
	if result == nil {
		return map[string]any{"items": []any{}, "count": 0}
	}
	if m, ok := result.(map[string]any); ok {
		return m
	}

	b, err := json.Marshal(result)
	if err != nil {
		return map[string]any{"data": result}
	}
	if string(b) == "null" {
		return map[string]any{"items": []any{}, "count": 0}
	}
	if len(b) > 0 && b[0] == '[' {
		var arr []any
		if err := json.Unmarshal(b, &arr); err == nil {
			return map[string]any{"items": arr, "count": len(arr)}
		}
	}
	if len(b) > 0 && b[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(b, &obj); err == nil {
			return obj
		}
	}
	return map[string]any{"data": result}
}

func jsonText(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal response: %w", err)
	}
	return string(b), nil
}

func boolPtr(b bool) *bool { return &b }
