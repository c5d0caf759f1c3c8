package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kutbudev/promptvault/internal/models"
)

const (
	promptsURI       = "promptvault://prompts"
	promptURIPrefix  = promptsURI + "/"
	resourceMIMEType = "application/json"
)

func (b *Bridge) registerResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         promptsURI,
		Name:        "prompts",
		Description: "Every prompt in the library, most recently updated first",
		MIMEType:    resourceMIMEType,
	}, b.handlePromptsResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: promptURIPrefix + "{uuid}",
		Name:        "prompt",
		Description: "One prompt with its full content",
		MIMEType:    resourceMIMEType,
	}, b.handlePromptResource)
}

func (b *Bridge) handlePromptsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	prompts, err := b.store.ListPrompts(ctx, models.ListPromptsParams{})
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, prompts)
}

func (b *Bridge) handlePromptResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	id := strings.TrimPrefix(req.Params.URI, promptURIPrefix)
	if id == "" || id == req.Params.URI {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	p, err := b.store.GetPrompt(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, p)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	text, err := jsonText(v)
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: resourceMIMEType,
			Text:     text,
		}},
	}, nil
}
