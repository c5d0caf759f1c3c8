package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/variables"
)

// Rows as PostgREST returns them. Timestamps stay strings because Postgres
// renders timestamptz with an offset ("+00:00") that models.ParseTime
// normalises.

type promptRow struct {
	UUID        string  `json:"uuid"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Content     string  `json:"content"`
	Tags        *string `json:"tags"`
	Category    *string `json:"category"`
	Language    *string `json:"language"`
	IsFavorite  bool    `json:"is_favorite"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	DeletedAt   *string `json:"deleted_at"`
}

func (r promptRow) model() (models.Prompt, error) {
	p := models.Prompt{
		UUID:        r.UUID,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Tags:        r.Tags,
		Category:    r.Category,
		Language:    r.Language,
		IsFavorite:  r.IsFavorite,
	}
	var err error
	if p.CreatedAt, err = models.ParseTime(r.CreatedAt); err != nil {
		return p, fmt.Errorf("prompt %s created_at: %w", r.UUID, err)
	}
	if p.UpdatedAt, err = models.ParseTime(r.UpdatedAt); err != nil {
		return p, fmt.Errorf("prompt %s updated_at: %w", r.UUID, err)
	}
	if r.DeletedAt != nil {
		t, err := models.ParseTime(*r.DeletedAt)
		if err != nil {
			return p, fmt.Errorf("prompt %s deleted_at: %w", r.UUID, err)
		}
		p.DeletedAt = &t
	}
	return p, nil
}

func promptInsert(p models.Prompt) map[string]any {
	return map[string]any{
		"uuid":        p.UUID,
		"title":       p.Title,
		"description": p.Description,
		"content":     p.Content,
		"tags":        p.Tags,
		"category":    p.Category,
		"language":    p.Language,
		"is_favorite": p.IsFavorite,
		"created_at":  models.FormatTime(p.CreatedAt),
		"updated_at":  models.FormatTime(p.UpdatedAt),
		"deleted_at":  nil,
	}
}

type categoryRow struct {
	UUID        string  `json:"uuid"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func (r categoryRow) model() (models.Category, error) {
	c := models.Category{UUID: r.UUID, Name: r.Name, Description: r.Description}
	var err error
	if c.CreatedAt, c.UpdatedAt, err = parsePair(r.CreatedAt, r.UpdatedAt); err != nil {
		return c, fmt.Errorf("category %s: %w", r.UUID, err)
	}
	return c, nil
}

type groupRow struct {
	UUID            string          `json:"uuid"`
	CategoryUUID    string          `json:"category_uuid"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	DisplayOrder    int             `json:"display_order"`
	GlobalVariables json.RawMessage `json:"global_variables"`
	CreatedAt       string          `json:"created_at"`
	UpdatedAt       string          `json:"updated_at"`
}

func (r groupRow) model() (models.Group, error) {
	g := models.Group{
		UUID:            r.UUID,
		CategoryUUID:    r.CategoryUUID,
		Name:            r.Name,
		Description:     r.Description,
		DisplayOrder:    r.DisplayOrder,
		GlobalVariables: models.Variables{},
	}
	// jsonb arrives as an object; a text column arrives as a JSON string
	raw := string(r.GlobalVariables)
	var asText string
	if json.Unmarshal(r.GlobalVariables, &asText) == nil {
		raw = asText
	}
	if vars, err := variables.Parse(raw); err == nil {
		g.GlobalVariables = models.Variables(vars)
	}
	var err error
	if g.CreatedAt, g.UpdatedAt, err = parsePair(r.CreatedAt, r.UpdatedAt); err != nil {
		return g, fmt.Errorf("group %s: %w", r.UUID, err)
	}
	return g, nil
}

type managementPromptRow struct {
	UUID         string `json:"uuid"`
	GroupUUID    string `json:"group_uuid"`
	Name         string `json:"name"`
	Content      string `json:"content"`
	DisplayOrder int    `json:"display_order"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func (r managementPromptRow) model() (models.ManagementPrompt, error) {
	m := models.ManagementPrompt{
		UUID:         r.UUID,
		GroupUUID:    r.GroupUUID,
		Name:         r.Name,
		Content:      r.Content,
		DisplayOrder: r.DisplayOrder,
	}
	var err error
	if m.CreatedAt, m.UpdatedAt, err = parsePair(r.CreatedAt, r.UpdatedAt); err != nil {
		return m, fmt.Errorf("management prompt %s: %w", r.UUID, err)
	}
	return m, nil
}

type resultRow struct {
	UUID       string `json:"uuid"`
	PromptUUID string `json:"prompt_uuid"`
	Content    string `json:"content"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func (r resultRow) model() (models.PromptResult, error) {
	res := models.PromptResult{UUID: r.UUID, PromptUUID: r.PromptUUID, Content: r.Content}
	var err error
	if res.CreatedAt, res.UpdatedAt, err = parsePair(r.CreatedAt, r.UpdatedAt); err != nil {
		return res, fmt.Errorf("prompt result %s: %w", r.UUID, err)
	}
	return res, nil
}

func parsePair(created, updated string) (c, u time.Time, err error) {
	if c, err = models.ParseTime(created); err != nil {
		return c, u, fmt.Errorf("created_at: %w", err)
	}
	if u, err = models.ParseTime(updated); err != nil {
		return c, u, fmt.Errorf("updated_at: %w", err)
	}
	return c, u, nil
}

// modelRow is satisfied by every row type
type modelRow[T any] interface {
	model() (T, error)
}

// convert maps decoded rows to models, failing on the first bad row
func convert[T any, R modelRow[T]](rows []R) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		m, err := r.model()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
