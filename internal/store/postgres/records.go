package postgres

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kutbudev/promptvault/internal/models"
	"github.com/kutbudev/promptvault/internal/variables"
)

// promptRecord is the prompts table. DeletedAt makes gorm soft-delete and
// scope every query to live rows.
type promptRecord struct {
	ID          uint           `gorm:"primaryKey"`
	UUID        string         `gorm:"type:text;not null;uniqueIndex"`
	Title       string         `gorm:"type:text;not null"`
	Description *string        `gorm:"type:text"`
	Content     string         `gorm:"type:text;not null"`
	Tags        *string        `gorm:"type:text"`
	Category    *string        `gorm:"type:text;index"`
	Language    *string        `gorm:"type:text"`
	IsFavorite  bool           `gorm:"not null;default:false"`
	CreatedAt   time.Time      `gorm:"not null"`
	UpdatedAt   time.Time      `gorm:"not null;index"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (promptRecord) TableName() string { return "prompts" }

func (r promptRecord) model() models.Prompt {
	p := models.Prompt{
		UUID:        r.UUID,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Tags:        r.Tags,
		Category:    r.Category,
		Language:    r.Language,
		IsFavorite:  r.IsFavorite,
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
	}
	if r.DeletedAt.Valid {
		t := utc(r.DeletedAt.Time)
		p.DeletedAt = &t
	}
	return p
}

func promptFromModel(p models.Prompt) promptRecord {
	return promptRecord{
		UUID:        p.UUID,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		Tags:        p.Tags,
		Category:    p.Category,
		Language:    p.Language,
		IsFavorite:  p.IsFavorite,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type categoryRecord struct {
	ID          uint          `gorm:"primaryKey"`
	UUID        string        `gorm:"type:text;not null;uniqueIndex"`
	Name        string        `gorm:"type:text;not null"`
	Description *string       `gorm:"type:text"`
	CreatedAt   time.Time     `gorm:"not null"`
	UpdatedAt   time.Time     `gorm:"not null"`
	Groups      []groupRecord `gorm:"foreignKey:CategoryUUID;references:UUID;constraint:OnDelete:CASCADE"`
}

func (categoryRecord) TableName() string { return "categories" }

func (r categoryRecord) model() models.Category {
	return models.Category{
		UUID:        r.UUID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   utc(r.CreatedAt),
		UpdatedAt:   utc(r.UpdatedAt),
	}
}

type groupRecord struct {
	ID                uint                     `gorm:"primaryKey"`
	UUID              string                   `gorm:"type:text;not null;uniqueIndex"`
	CategoryUUID      string                   `gorm:"type:text;not null;index:idx_groups_category"`
	Name              string                   `gorm:"type:text;not null"`
	Description       *string                  `gorm:"type:text"`
	DisplayOrder      int                      `gorm:"not null;default:0;index:idx_groups_category"`
	GlobalVariables   datatypes.JSONMap        `gorm:"not null;default:'{}'"`
	CreatedAt         time.Time                `gorm:"not null"`
	UpdatedAt         time.Time                `gorm:"not null"`
	ManagementPrompts []managementPromptRecord `gorm:"foreignKey:GroupUUID;references:UUID;constraint:OnDelete:CASCADE"`
}

func (groupRecord) TableName() string { return "groups" }

func (r groupRecord) model() models.Group {
	return models.Group{
		UUID:            r.UUID,
		CategoryUUID:    r.CategoryUUID,
		Name:            r.Name,
		Description:     r.Description,
		DisplayOrder:    r.DisplayOrder,
		GlobalVariables: variablesFromJSON(r.GlobalVariables),
		CreatedAt:       utc(r.CreatedAt),
		UpdatedAt:       utc(r.UpdatedAt),
	}
}

type managementPromptRecord struct {
	ID           uint           `gorm:"primaryKey"`
	UUID         string         `gorm:"type:text;not null;uniqueIndex"`
	GroupUUID    string         `gorm:"type:text;not null;index:idx_management_prompts_group"`
	Name         string         `gorm:"type:text;not null"`
	Content      string         `gorm:"type:text;not null"`
	DisplayOrder int            `gorm:"not null;default:0;index:idx_management_prompts_group"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
	Results      []resultRecord `gorm:"foreignKey:PromptUUID;references:UUID;constraint:OnDelete:CASCADE"`
}

func (managementPromptRecord) TableName() string { return "management_prompts" }

func (r managementPromptRecord) model() models.ManagementPrompt {
	return models.ManagementPrompt{
		UUID:         r.UUID,
		GroupUUID:    r.GroupUUID,
		Name:         r.Name,
		Content:      r.Content,
		DisplayOrder: r.DisplayOrder,
		CreatedAt:    utc(r.CreatedAt),
		UpdatedAt:    utc(r.UpdatedAt),
	}
}

type resultRecord struct {
	ID         uint      `gorm:"primaryKey"`
	UUID       string    `gorm:"type:text;not null;uniqueIndex"`
	PromptUUID string    `gorm:"type:text;not null;index"`
	Content    string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (resultRecord) TableName() string { return "prompt_results" }

func (r resultRecord) model() models.PromptResult {
	return models.PromptResult{
		UUID:       r.UUID,
		PromptUUID: r.PromptUUID,
		Content:    r.Content,
		CreatedAt:  utc(r.CreatedAt),
		UpdatedAt:  utc(r.UpdatedAt),
	}
}

// schemaVersion mirrors the table the other backends probe
type schemaVersion struct {
	Version   int       `gorm:"primaryKey"`
	AppliedAt time.Time `gorm:"not null"`
}

func (schemaVersion) TableName() string { return "schema_version" }

func utc(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func variablesToJSON(v models.Variables) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// variablesFromJSON flattens stored values to strings the same way the
// other backends do for hand-edited rows.
func variablesFromJSON(m datatypes.JSONMap) models.Variables {
	if len(m) == 0 {
		return models.Variables{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return models.Variables{}
	}
	vars, err := variables.Parse(string(raw))
	if err != nil {
		return models.Variables{}
	}
	return models.Variables(vars)
}

func convert[T any, R interface{ model() T }](records []R) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, r.model())
	}
	return out
}
