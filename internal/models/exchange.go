package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ExportedPrompt is the persisted export format of a Prompt. It carries no
// storage id and no deletion marker.
type ExportedPrompt struct {
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
}

// Export projects p into the export format
func (p Prompt) Export() ExportedPrompt {
	return ExportedPrompt{
		UUID:        p.UUID,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		Tags:        p.Tags,
		Category:    p.Category,
		Language:    p.Language,
		IsFavorite:  p.IsFavorite,
		CreatedAt:   FormatTime(p.CreatedAt),
		UpdatedAt:   FormatTime(p.UpdatedAt),
	}
}

// ImportRecord is one candidate record of an import file. Timestamps stay
// raw strings until the reconciler decides how to treat them.
type ImportRecord struct {
	UUID        string  `json:"uuid"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Content     string  `json:"content"`
	Tags        *string `json:"tags"`
	Category    *string `json:"category"`
	Language    *string `json:"language"`
	IsFavorite  Flag    `json:"is_favorite"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Flag is a boolean that also accepts the 0/1 integers older exports wrote.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null", "false", "0":
		*f = false
		return nil
	case "true", "1":
		*f = true
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("is_favorite: expected boolean or number, got %s", string(data))
	}
	*f = n != 0
	return nil
}
