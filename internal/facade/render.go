package facade

import (
	"context"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/store"
	"github.com/kutbudev/promptvault/internal/variables"
)

// RenderResult is an expanded management prompt
type RenderResult struct {
	UUID      string            `json:"uuid"`
	Name      string            `json:"name"`
	Content   string            `json:"content"`
	Variables map[string]string `json:"variables"`
	Missing   []string          `json:"missing"`
}

// Render expands the management prompt uuid with its group's global
// variables overlaid by vars. Placeholders nobody covers stay in the
// content and are listed in Missing.
func Render(ctx context.Context, s store.Store, uuid string, vars map[string]string) (*RenderResult, error) {
	mp, err := s.GetManagementPrompt(ctx, uuid)
	if err != nil {
		return nil, err
	}
	if mp == nil {
		return nil, apperr.NotFound("ManagementPrompt not found")
	}

	g, err := s.GetGroup(ctx, mp.GroupUUID)
	if err != nil {
		return nil, err
	}
	var globals map[string]string
	if g != nil {
		globals = g.GlobalVariables
	}

	merged := variables.Merge(globals, vars)
	missing := variables.Missing(mp.Content, merged)
	if missing == nil {
		missing = []string{}
	}
	return &RenderResult{
		UUID:      mp.UUID,
		Name:      mp.Name,
		Content:   variables.Replace(mp.Content, merged),
		Variables: merged,
		Missing:   missing,
	}, nil
}
