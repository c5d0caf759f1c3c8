package models

import (
	"bytes"
	"encoding/json"
)

// Create and update payloads. Pointer fields distinguish "absent" from
// "explicitly set": a nil field is left untouched by an update. Update
// payloads decoded from JSON also remember keys sent as null: a null
// optional field decodes to "" (cleared), a null required field is kept
// in the null set and rejected by validation.

// nullSet holds the keys of an update payload that arrived as JSON null
type nullSet map[string]bool

// Null reports whether key was sent as an explicit null
func (n nullSet) Null(key string) bool {
	return n[key]
}

// nullKeys returns the top-level keys of a JSON object whose value is null
func nullKeys(data []byte) (nullSet, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	var nulls nullSet
	for k, v := range fields {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			if nulls == nil {
				nulls = nullSet{}
			}
			nulls[k] = true
		}
	}
	return nulls, nil
}

// clearIfNull points *s at "" when key was sent as null
func clearIfNull(nulls nullSet, key string, s **string) {
	if nulls.Null(key) && *s == nil {
		*s = StringPtr("")
	}
}

// CreatePromptPayload describes a new Prompt.
// UUID is optional; when empty a random identity is assigned.
type CreatePromptPayload struct {
	UUID        string  `json:"uuid,omitempty"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Content     string  `json:"content"`
	Tags        *string `json:"tags,omitempty"`
	Category    *string `json:"category,omitempty"`
	Language    *string `json:"language,omitempty"`
	IsFavorite  *bool   `json:"is_favorite,omitempty"`
}

// UpdatePromptPayload is a partial update of a Prompt
type UpdatePromptPayload struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Content     *string `json:"content,omitempty"`
	Tags        *string `json:"tags,omitempty"`
	Category    *string `json:"category,omitempty"`
	Language    *string `json:"language,omitempty"`
	IsFavorite  *bool   `json:"is_favorite,omitempty"`

	nullSet
}

func (p *UpdatePromptPayload) UnmarshalJSON(data []byte) error {
	type plain UpdatePromptPayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	nulls, err := nullKeys(data)
	if err != nil {
		return err
	}
	*p = UpdatePromptPayload(v)
	p.nullSet = nulls
	clearIfNull(nulls, "description", &p.Description)
	clearIfNull(nulls, "tags", &p.Tags)
	clearIfNull(nulls, "category", &p.Category)
	clearIfNull(nulls, "language", &p.Language)
	return nil
}

// IsEmpty reports whether no recognised field is present
func (p UpdatePromptPayload) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Content == nil &&
		p.Tags == nil && p.Category == nil && p.Language == nil && p.IsFavorite == nil
}

type CreateCategoryPayload struct {
	UUID        string  `json:"uuid,omitempty"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

type UpdateCategoryPayload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`

	nullSet
}

func (p *UpdateCategoryPayload) UnmarshalJSON(data []byte) error {
	type plain UpdateCategoryPayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	nulls, err := nullKeys(data)
	if err != nil {
		return err
	}
	*p = UpdateCategoryPayload(v)
	p.nullSet = nulls
	clearIfNull(nulls, "description", &p.Description)
	return nil
}

func (p UpdateCategoryPayload) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}

// CreateGroupPayload describes a new Group. A nil DisplayOrder appends the
// group after its existing siblings.
type CreateGroupPayload struct {
	UUID            string    `json:"uuid,omitempty"`
	CategoryUUID    string    `json:"category_uuid"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	DisplayOrder    *int      `json:"display_order,omitempty"`
	GlobalVariables Variables `json:"global_variables,omitempty"`
}

type UpdateGroupPayload struct {
	Name            *string   `json:"name,omitempty"`
	Description     *string   `json:"description,omitempty"`
	DisplayOrder    *int      `json:"display_order,omitempty"`
	GlobalVariables Variables `json:"global_variables,omitempty"`

	nullSet
}

func (p *UpdateGroupPayload) UnmarshalJSON(data []byte) error {
	type plain UpdateGroupPayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	nulls, err := nullKeys(data)
	if err != nil {
		return err
	}
	*p = UpdateGroupPayload(v)
	p.nullSet = nulls
	clearIfNull(nulls, "description", &p.Description)
	if nulls.Null("global_variables") && p.GlobalVariables == nil {
		p.GlobalVariables = Variables{}
	}
	return nil
}

func (p UpdateGroupPayload) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.DisplayOrder == nil && p.GlobalVariables == nil
}

type CreateManagementPromptPayload struct {
	UUID         string `json:"uuid,omitempty"`
	GroupUUID    string `json:"group_uuid"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	DisplayOrder *int   `json:"display_order,omitempty"`
}

// UpdateManagementPromptPayload may move the prompt to another group via GroupUUID
type UpdateManagementPromptPayload struct {
	GroupUUID    *string `json:"group_uuid,omitempty"`
	Name         *string `json:"name,omitempty"`
	Content      *string `json:"content,omitempty"`
	DisplayOrder *int    `json:"display_order,omitempty"`

	nullSet
}

func (p *UpdateManagementPromptPayload) UnmarshalJSON(data []byte) error {
	type plain UpdateManagementPromptPayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	nulls, err := nullKeys(data)
	if err != nil {
		return err
	}
	*p = UpdateManagementPromptPayload(v)
	p.nullSet = nulls
	return nil
}

func (p UpdateManagementPromptPayload) IsEmpty() bool {
	return p.GroupUUID == nil && p.Name == nil && p.Content == nil && p.DisplayOrder == nil
}

type CreatePromptResultPayload struct {
	UUID       string `json:"uuid,omitempty"`
	PromptUUID string `json:"prompt_uuid"`
	Content    string `json:"content"`
}

type UpdatePromptResultPayload struct {
	Content *string `json:"content,omitempty"`

	nullSet
}

func (p *UpdatePromptResultPayload) UnmarshalJSON(data []byte) error {
	type plain UpdatePromptResultPayload
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	nulls, err := nullKeys(data)
	if err != nil {
		return err
	}
	*p = UpdatePromptResultPayload(v)
	p.nullSet = nulls
	return nil
}

func (p UpdatePromptResultPayload) IsEmpty() bool {
	return p.Content == nil
}

// ListPromptsParams controls pagination and ordering of prompt listings.
// Zero values select the defaults (limit 100, offset 0, updated_at desc).
type ListPromptsParams struct {
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	Sort   string `json:"sort,omitempty"`
	Order  string `json:"order,omitempty"`
}

// Search modes
const (
	SearchContains = "contains"
	SearchFullText = "fts"
)

type SearchPromptsParams struct {
	Query    string `json:"q,omitempty"`
	Category string `json:"category,omitempty"`
	Tag      string `json:"tag,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// HasCriteria reports whether any text query or filter is set
func (p SearchPromptsParams) HasCriteria() bool {
	return p.Query != "" || p.Category != "" || p.Tag != ""
}
