package store

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
)

// Defaults for prompt listings
const (
	DefaultLimit = 100
	DefaultSort  = "updated_at"
	DefaultOrder = "desc"
)

var (
	allowedSorts  = map[string]bool{"updated_at": true, "created_at": true, "title": true}
	allowedOrders = map[string]bool{"asc": true, "desc": true}
)

// NewID returns preset when it is a valid uuid, a fresh v4 uuid when preset
// is empty, and a validation error otherwise.
func NewID(preset string) (string, error) {
	preset = strings.TrimSpace(preset)
	if preset == "" {
		return uuid.NewString(), nil
	}
	if _, err := uuid.Parse(preset); err != nil {
		return "", apperr.Validation("Invalid uuid %q", preset)
	}
	return preset, nil
}

// TrimOptional trims s; a blank result becomes nil (stored as NULL).
func TrimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// trimPresent trims a present optional field for an update. A blank value
// stays present as "" so that the backend clears the column.
func trimPresent(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// requirePresent trims a present required field and rejects blank values.
func requirePresent(s *string, field string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, apperr.Validation("%s cannot be empty", field)
	}
	return &v, nil
}

// rejectNulls fails when any of the required keys arrived as an explicit
// JSON null. Labels pair each key with its name in the error message.
func rejectNulls(p interface{ Null(string) bool }, labels ...string) error {
	for i := 0; i+1 < len(labels); i += 2 {
		if p.Null(labels[i]) {
			return apperr.Validation("%s cannot be null", labels[i+1])
		}
	}
	return nil
}

// PreparePrompt trims and validates a create payload and assigns its identity.
func PreparePrompt(p models.CreatePromptPayload) (models.CreatePromptPayload, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Content = strings.TrimSpace(p.Content)
	if p.Title == "" {
		return p, apperr.Validation("Title is required")
	}
	if p.Content == "" {
		return p, apperr.Validation("Content is required")
	}
	id, err := NewID(p.UUID)
	if err != nil {
		return p, err
	}
	p.UUID = id
	p.Description = TrimOptional(p.Description)
	p.Tags = TrimOptional(p.Tags)
	p.Category = TrimOptional(p.Category)
	p.Language = TrimOptional(p.Language)
	return p, nil
}

// PreparePromptUpdate trims present fields and rejects blank required ones.
// Optional fields set to blank come back as pointers to "".
func PreparePromptUpdate(p models.UpdatePromptPayload) (models.UpdatePromptPayload, error) {
	if err := rejectNulls(p, "title", "Title", "content", "Content", "is_favorite", "is_favorite"); err != nil {
		return p, err
	}
	var err error
	if p.Title, err = requirePresent(p.Title, "Title"); err != nil {
		return p, err
	}
	if p.Content, err = requirePresent(p.Content, "Content"); err != nil {
		return p, err
	}
	p.Description = trimPresent(p.Description)
	p.Tags = trimPresent(p.Tags)
	p.Category = trimPresent(p.Category)
	p.Language = trimPresent(p.Language)
	return p, nil
}

func PrepareCategory(p models.CreateCategoryPayload) (models.CreateCategoryPayload, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, apperr.Validation("Category name is required")
	}
	id, err := NewID(p.UUID)
	if err != nil {
		return p, err
	}
	p.UUID = id
	p.Description = TrimOptional(p.Description)
	return p, nil
}

func PrepareCategoryUpdate(p models.UpdateCategoryPayload) (models.UpdateCategoryPayload, error) {
	if err := rejectNulls(p, "name", "Category name"); err != nil {
		return p, err
	}
	var err error
	if p.Name, err = requirePresent(p.Name, "Category name"); err != nil {
		return p, err
	}
	p.Description = trimPresent(p.Description)
	return p, nil
}

// PrepareGroup validates a group payload. The parent check and the
// display order default are left to the backend.
func PrepareGroup(p models.CreateGroupPayload) (models.CreateGroupPayload, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.CategoryUUID = strings.TrimSpace(p.CategoryUUID)
	if p.Name == "" {
		return p, apperr.Validation("Group name is required")
	}
	if p.CategoryUUID == "" {
		return p, apperr.Validation("Category UUID is required")
	}
	id, err := NewID(p.UUID)
	if err != nil {
		return p, err
	}
	p.UUID = id
	p.Description = TrimOptional(p.Description)
	p.GlobalVariables = p.GlobalVariables.Clone()
	return p, nil
}

func PrepareGroupUpdate(p models.UpdateGroupPayload) (models.UpdateGroupPayload, error) {
	if err := rejectNulls(p, "name", "Group name", "display_order", "display_order"); err != nil {
		return p, err
	}
	var err error
	if p.Name, err = requirePresent(p.Name, "Group name"); err != nil {
		return p, err
	}
	p.Description = trimPresent(p.Description)
	return p, nil
}

func PrepareManagementPrompt(p models.CreateManagementPromptPayload) (models.CreateManagementPromptPayload, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Content = strings.TrimSpace(p.Content)
	p.GroupUUID = strings.TrimSpace(p.GroupUUID)
	if p.Name == "" {
		return p, apperr.Validation("Prompt name is required")
	}
	if p.Content == "" {
		return p, apperr.Validation("Prompt content is required")
	}
	if p.GroupUUID == "" {
		return p, apperr.Validation("Group UUID is required")
	}
	id, err := NewID(p.UUID)
	if err != nil {
		return p, err
	}
	p.UUID = id
	return p, nil
}

func PrepareManagementPromptUpdate(p models.UpdateManagementPromptPayload) (models.UpdateManagementPromptPayload, error) {
	if err := rejectNulls(p, "name", "Prompt name", "content", "Prompt content",
		"group_uuid", "Group UUID", "display_order", "display_order"); err != nil {
		return p, err
	}
	var err error
	if p.Name, err = requirePresent(p.Name, "Prompt name"); err != nil {
		return p, err
	}
	if p.Content, err = requirePresent(p.Content, "Prompt content"); err != nil {
		return p, err
	}
	if p.GroupUUID, err = requirePresent(p.GroupUUID, "Group UUID"); err != nil {
		return p, err
	}
	return p, nil
}

func PreparePromptResult(p models.CreatePromptResultPayload) (models.CreatePromptResultPayload, error) {
	p.Content = strings.TrimSpace(p.Content)
	p.PromptUUID = strings.TrimSpace(p.PromptUUID)
	if p.Content == "" {
		return p, apperr.Validation("Result content is required")
	}
	if p.PromptUUID == "" {
		return p, apperr.Validation("Prompt UUID is required")
	}
	id, err := NewID(p.UUID)
	if err != nil {
		return p, err
	}
	p.UUID = id
	return p, nil
}

func PreparePromptResultUpdate(p models.UpdatePromptResultPayload) (models.UpdatePromptResultPayload, error) {
	if err := rejectNulls(p, "content", "Result content"); err != nil {
		return p, err
	}
	var err error
	p.Content, err = requirePresent(p.Content, "Result content")
	return p, err
}

// NormalizeList applies defaults. Unknown sort or order values silently fall
// back to updated_at / desc.
func NormalizeList(p models.ListPromptsParams) models.ListPromptsParams {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	p.Sort = strings.ToLower(strings.TrimSpace(p.Sort))
	if !allowedSorts[p.Sort] {
		p.Sort = DefaultSort
	}
	p.Order = strings.ToLower(strings.TrimSpace(p.Order))
	if !allowedOrders[p.Order] {
		p.Order = DefaultOrder
	}
	return p
}

// NormalizeSearch trims criteria and applies pagination defaults.
func NormalizeSearch(p models.SearchPromptsParams) models.SearchPromptsParams {
	p.Query = strings.TrimSpace(p.Query)
	p.Category = strings.TrimSpace(p.Category)
	p.Tag = strings.TrimSpace(p.Tag)
	if p.Mode != models.SearchFullText {
		p.Mode = models.SearchContains
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// NextDisplayOrder returns the order for a new last sibling given the
// current maximum. hasSiblings is false for an empty parent.
func NextDisplayOrder(highest int, hasSiblings bool) int {
	if !hasSiblings {
		return 0
	}
	return highest + 1
}
