package models

import (
	"strings"
	"time"
)

// Prompt represents a reusable text prompt in the library
type Prompt struct {
	UUID        string     `json:"uuid"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Content     string     `json:"content"`
	Tags        *string    `json:"tags"`     // comma-delimited at the presentation layer
	Category    *string    `json:"category"` // free-text label, not a Category record
	Language    *string    `json:"language"`
	IsFavorite  bool       `json:"is_favorite"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Category is the root of the management hierarchy
type Category struct {
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Group belongs to a Category and carries variables shared by its prompts
type Group struct {
	UUID            string    `json:"uuid"`
	CategoryUUID    string    `json:"category_uuid"`
	Name            string    `json:"name"`
	Description     *string   `json:"description"`
	DisplayOrder    int       `json:"display_order"`
	GlobalVariables Variables `json:"global_variables"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ManagementPrompt is a templated prompt inside a Group
type ManagementPrompt struct {
	UUID         string    `json:"uuid"`
	GroupUUID    string    `json:"group_uuid"`
	Name         string    `json:"name"`
	Content      string    `json:"content"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PromptResult stores an output produced by running a ManagementPrompt
type PromptResult struct {
	UUID       string    `json:"uuid"`
	PromptUUID string    `json:"prompt_uuid"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Variables maps placeholder names to their values
type Variables map[string]string

// Clone returns a copy that is never nil
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// ReorderItem assigns a new display order to one sibling
type ReorderItem struct {
	UUID         string `json:"uuid"`
	DisplayOrder int    `json:"display_order"`
}

// ImportStats aggregates the outcome of a merge import
type ImportStats struct {
	Imported int `json:"imported"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// MigrationResult aggregates the outcome of copying the embedded store to a remote one
type MigrationResult struct {
	Prompts           int      `json:"prompts"`
	Categories        int      `json:"categories"`
	Groups            int      `json:"groups"`
	ManagementPrompts int      `json:"managementPrompts"`
	PromptResults     int      `json:"promptResults"`
	Errors            []string `json:"errors"`
}

// Total returns the number of records written to the target
func (r MigrationResult) Total() int {
	return r.Prompts + r.Categories + r.Groups + r.ManagementPrompts + r.PromptResults
}

// TimeLayout is the storage representation of every timestamp.
// It is fixed width so that lexical order equals chronological order.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Now returns the current UTC time at storage precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts ISO-8601 timestamps with or without fractional seconds,
// and the "YYYY-MM-DD HH:MM:SS" form SQLite produces for CURRENT_TIMESTAMP.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		var err2 error
		t, err2 = time.Parse("2006-01-02 15:04:05", s)
		if err2 != nil {
			return time.Time{}, err
		}
	}
	return t.UTC().Truncate(time.Millisecond), nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
