// Package store defines the backend-independent record store contract and
// the logic every backend shares: payload validation, list normalisation and
// the merge import.
package store

import (
	"context"

	"github.com/kutbudev/promptvault/internal/models"
)

// PromptStore manages the prompt library. Deletes are soft: a deleted prompt
// disappears from every read but keeps its row.
type PromptStore interface {
	CreatePrompt(ctx context.Context, payload models.CreatePromptPayload) (*models.Prompt, error)
	UpdatePrompt(ctx context.Context, uuid string, payload models.UpdatePromptPayload) (*models.Prompt, error)
	DeletePrompt(ctx context.Context, uuid string) error
	// GetPrompt returns (nil, nil) when no live prompt has that uuid.
	GetPrompt(ctx context.Context, uuid string) (*models.Prompt, error)
	ListPrompts(ctx context.Context, params models.ListPromptsParams) ([]models.Prompt, error)
	SearchPrompts(ctx context.Context, params models.SearchPromptsParams) ([]models.Prompt, error)
	ExportPrompts(ctx context.Context) ([]models.ExportedPrompt, error)
	ImportPrompts(ctx context.Context, records []models.ImportRecord) (models.ImportStats, error)
}

// CategoryStore manages categories. Deleting one cascades to its groups,
// their management prompts and those prompts' results.
type CategoryStore interface {
	CreateCategory(ctx context.Context, payload models.CreateCategoryPayload) (*models.Category, error)
	UpdateCategory(ctx context.Context, uuid string, payload models.UpdateCategoryPayload) (*models.Category, error)
	DeleteCategory(ctx context.Context, uuid string) error
	GetCategory(ctx context.Context, uuid string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, payload models.CreateGroupPayload) (*models.Group, error)
	UpdateGroup(ctx context.Context, uuid string, payload models.UpdateGroupPayload) (*models.Group, error)
	DeleteGroup(ctx context.Context, uuid string) error
	GetGroup(ctx context.Context, uuid string) (*models.Group, error)
	ListGroups(ctx context.Context, categoryUUID string) ([]models.Group, error)
	ReorderGroups(ctx context.Context, items []models.ReorderItem) error
}

type ManagementPromptStore interface {
	CreateManagementPrompt(ctx context.Context, payload models.CreateManagementPromptPayload) (*models.ManagementPrompt, error)
	UpdateManagementPrompt(ctx context.Context, uuid string, payload models.UpdateManagementPromptPayload) (*models.ManagementPrompt, error)
	DeleteManagementPrompt(ctx context.Context, uuid string) error
	GetManagementPrompt(ctx context.Context, uuid string) (*models.ManagementPrompt, error)
	ListManagementPrompts(ctx context.Context, groupUUID string) ([]models.ManagementPrompt, error)
	ReorderManagementPrompts(ctx context.Context, items []models.ReorderItem) error
}

type PromptResultStore interface {
	CreatePromptResult(ctx context.Context, payload models.CreatePromptResultPayload) (*models.PromptResult, error)
	UpdatePromptResult(ctx context.Context, uuid string, payload models.UpdatePromptResultPayload) (*models.PromptResult, error)
	DeletePromptResult(ctx context.Context, uuid string) error
	GetPromptResult(ctx context.Context, uuid string) (*models.PromptResult, error)
	// ListPromptResults returns newest first.
	ListPromptResults(ctx context.Context, promptUUID string) ([]models.PromptResult, error)
}

// Store is the full record store. Implementations are constructed
// explicitly and must be closed by their owner.
type Store interface {
	PromptStore
	CategoryStore
	GroupStore
	ManagementPromptStore
	PromptResultStore

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Location describes where records live (file path or service URL).
	Location() string
	Close() error
}

// Tombstones is implemented by backends that soft-delete prompts. A deleted
// prompt keeps its uuid, so a copy into such a store must not re-create it.
type Tombstones interface {
	PromptDeleted(ctx context.Context, uuid string) (bool, error)
}

// Snapshot reads every record of a store regardless of parent scope. The
// migration runner uses it to walk the embedded store.
type Snapshot interface {
	AllPrompts(ctx context.Context) ([]models.Prompt, error)
	AllCategories(ctx context.Context) ([]models.Category, error)
	AllGroups(ctx context.Context) ([]models.Group, error)
	AllManagementPrompts(ctx context.Context) ([]models.ManagementPrompt, error)
	AllPromptResults(ctx context.Context) ([]models.PromptResult, error)
}
