package facade

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
)

type uuidArgs struct {
	UUID string `json:"uuid"`
}

func (a uuidArgs) require() (string, error) {
	id := strings.TrimSpace(a.UUID)
	if id == "" {
		return "", apperr.Validation("uuid is required")
	}
	return id, nil
}

// updateArgs carries the target uuid next to its partial payload
type updateArgs[P any] struct {
	UUID    string `json:"uuid"`
	Payload P      `json:"payload"`
}

type reorderArgs struct {
	Items []models.ReorderItem `json:"items"`
}

func (a reorderArgs) validate() error {
	for i, item := range a.Items {
		if strings.TrimSpace(item.UUID) == "" {
			return apperr.Validation("items[%d].uuid is required", i)
		}
	}
	return nil
}

// crud wires the five record operations of one kind
type crud[T, C, U any] struct {
	kind   string
	create func(context.Context, C) (*T, error)
	update func(context.Context, string, U) (*T, error)
	delete func(context.Context, string) error
	get    func(context.Context, string) (*T, error)
}

func (c crud[T, C, U]) register(ops map[string]operation, prefix string) {
	ops[prefix+":create"] = operation{CodeCreateFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var payload C
		if err := decode(raw, &payload); err != nil {
			return nil, err
		}
		return c.create(ctx, payload)
	}}
	ops[prefix+":update"] = operation{CodeUpdateFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args updateArgs[U]
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		id, err := uuidArgs{UUID: args.UUID}.require()
		if err != nil {
			return nil, err
		}
		return c.update(ctx, id, args.Payload)
	}}
	ops[prefix+":delete"] = operation{CodeDeleteFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args uuidArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		id, err := args.require()
		if err != nil {
			return nil, err
		}
		if err := c.delete(ctx, id); err != nil {
			return nil, err
		}
		return true, nil
	}}
	ops[prefix+":get"] = operation{CodeGetFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args uuidArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		id, err := args.require()
		if err != nil {
			return nil, err
		}
		rec, err := c.get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, apperr.NotFound("%s not found", c.kind)
		}
		return rec, nil
	}}
}

// listOf wires a list operation scoped to one parent uuid
func listOf[T any](field string, list func(context.Context, string) ([]T, error)) operation {
	return operation{CodeListFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args map[string]string
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		parent := strings.TrimSpace(args[field])
		if parent == "" {
			return nil, apperr.Validation("%s is required", field)
		}
		return list(ctx, parent)
	}}
}

func reorderOp(reorder func(context.Context, []models.ReorderItem) error) operation {
	return operation{CodeReorderFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args reorderArgs
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		if err := args.validate(); err != nil {
			return nil, err
		}
		if err := reorder(ctx, args.Items); err != nil {
			return nil, err
		}
		return true, nil
	}}
}

func (f *Facade) routes() map[string]operation {
	s := f.store
	ops := map[string]operation{}

	crud[models.Prompt, models.CreatePromptPayload, models.UpdatePromptPayload]{
		kind: "Prompt", create: s.CreatePrompt, update: s.UpdatePrompt, delete: s.DeletePrompt, get: s.GetPrompt,
	}.register(ops, "prompt")
	crud[models.Category, models.CreateCategoryPayload, models.UpdateCategoryPayload]{
		kind: "Category", create: s.CreateCategory, update: s.UpdateCategory, delete: s.DeleteCategory, get: s.GetCategory,
	}.register(ops, "category")
	crud[models.Group, models.CreateGroupPayload, models.UpdateGroupPayload]{
		kind: "Group", create: s.CreateGroup, update: s.UpdateGroup, delete: s.DeleteGroup, get: s.GetGroup,
	}.register(ops, "group")
	crud[models.ManagementPrompt, models.CreateManagementPromptPayload, models.UpdateManagementPromptPayload]{
		kind: "ManagementPrompt", create: s.CreateManagementPrompt, update: s.UpdateManagementPrompt,
		delete: s.DeleteManagementPrompt, get: s.GetManagementPrompt,
	}.register(ops, "management-prompt")
	crud[models.PromptResult, models.CreatePromptResultPayload, models.UpdatePromptResultPayload]{
		kind: "PromptResult", create: s.CreatePromptResult, update: s.UpdatePromptResult,
		delete: s.DeletePromptResult, get: s.GetPromptResult,
	}.register(ops, "prompt-result")

	ops["prompt:list"] = operation{CodeListFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params models.ListPromptsParams
		if err := decode(raw, &params); err != nil {
			return nil, err
		}
		return s.ListPrompts(ctx, params)
	}}
	ops["prompt:search"] = operation{CodeSearchFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var params models.SearchPromptsParams
		if err := decode(raw, &params); err != nil {
			return nil, err
		}
		return s.SearchPrompts(ctx, params)
	}}
	ops["prompt:export"] = operation{CodeExportFailed, f.exportPrompts}
	ops["prompt:import"] = operation{CodeImportFailed, f.importPrompts}
	ops["prompt:reveal-db"] = operation{CodeRevealFailed, func(context.Context, json.RawMessage) (any, error) {
		return s.Location(), nil
	}}

	ops["category:list"] = operation{CodeListFailed, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return s.ListCategories(ctx)
	}}
	ops["group:list"] = listOf("category_uuid", s.ListGroups)
	ops["group:reorder"] = reorderOp(s.ReorderGroups)
	ops["management-prompt:list"] = listOf("group_uuid", s.ListManagementPrompts)
	ops["management-prompt:reorder"] = reorderOp(s.ReorderManagementPrompts)
	ops["management-prompt:render"] = operation{CodeRenderFailed, func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args struct {
			UUID      string            `json:"uuid"`
			Variables map[string]string `json:"variables"`
		}
		if err := decode(raw, &args); err != nil {
			return nil, err
		}
		id, err := uuidArgs{UUID: args.UUID}.require()
		if err != nil {
			return nil, err
		}
		return Render(ctx, s, id, args.Variables)
	}}
	ops["prompt-result:list"] = listOf("prompt_uuid", s.ListPromptResults)

	ops["migrate:to-remote"] = operation{CodeMigrationFailed, func(ctx context.Context, _ json.RawMessage) (any, error) {
		if f.migrator == nil {
			return nil, apperr.Validation("migration is not available in this process")
		}
		return f.migrator.Migrate(ctx)
	}}
	ops["config:test-connection"] = operation{CodeConnectionFailed, func(ctx context.Context, _ json.RawMessage) (any, error) {
		location, err := f.tester(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"connected": true, "location": location}, nil
	}}

	return ops
}
