package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kutbudev/promptvault/internal/apperr"
	"github.com/kutbudev/promptvault/internal/models"
)

func TestPreparePrompt(t *testing.T) {
	p, err := PreparePrompt(models.CreatePromptPayload{
		Title:       "  Summarize  ",
		Content:     "\tSummarize {{text}}\n",
		Description: models.StringPtr("   "),
		Tags:        models.StringPtr(" a, b "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Summarize", p.Title)
	assert.Equal(t, "Summarize {{text}}", p.Content)
	assert.Nil(t, p.Description)
	assert.Equal(t, "a, b", *p.Tags)
	_, err = uuid.Parse(p.UUID)
	assert.NoError(t, err)

	testCases := []struct {
		name    string
		payload models.CreatePromptPayload
		message string
	}{
		{"blank title", models.CreatePromptPayload{Title: "  ", Content: "x"}, "Title is required"},
		{"blank content", models.CreatePromptPayload{Title: "x", Content: ""}, "Content is required"},
		{"bad preset uuid", models.CreatePromptPayload{UUID: "nope", Title: "x", Content: "y"}, `Invalid uuid "nope"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PreparePrompt(tc.payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			assert.Equal(t, tc.message, apperr.Message(err))
		})
	}
}

func TestPreparePromptKeepsPresetUUID(t *testing.T) {
	id := uuid.NewString()
	p, err := PreparePrompt(models.CreatePromptPayload{UUID: id, Title: "x", Content: "y"})
	require.NoError(t, err)
	assert.Equal(t, id, p.UUID)
}

func TestPreparePromptUpdate(t *testing.T) {
	_, err := PreparePromptUpdate(models.UpdatePromptPayload{Title: models.StringPtr(" ")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	p, err := PreparePromptUpdate(models.UpdatePromptPayload{
		Description: models.StringPtr("  "),
		Language:    models.StringPtr(" go "),
	})
	require.NoError(t, err)
	require.NotNil(t, p.Description)
	assert.Equal(t, "", *p.Description)
	assert.Equal(t, "go", *p.Language)
	assert.Nil(t, p.Title)

	var null models.UpdatePromptPayload
	require.NoError(t, json.Unmarshal([]byte(`{"title": null}`), &null))
	_, err = PreparePromptUpdate(null)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Contains(t, err.Error(), "Title cannot be null")
}

func TestPrepareChildren(t *testing.T) {
	_, err := PrepareGroup(models.CreateGroupPayload{Name: "g"})
	assert.Equal(t, "VALIDATION_ERROR: Category UUID is required", err.Error())

	g, err := PrepareGroup(models.CreateGroupPayload{Name: "g", CategoryUUID: "c"})
	require.NoError(t, err)
	assert.NotNil(t, g.GlobalVariables)

	_, err = PrepareManagementPrompt(models.CreateManagementPromptPayload{Name: "n", Content: "c"})
	assert.Equal(t, "VALIDATION_ERROR: Group UUID is required", err.Error())

	_, err = PreparePromptResult(models.CreatePromptResultPayload{PromptUUID: "p"})
	assert.Equal(t, "VALIDATION_ERROR: Result content is required", err.Error())

	_, err = PrepareManagementPromptUpdate(models.UpdateManagementPromptPayload{GroupUUID: models.StringPtr("")})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestNormalizeList(t *testing.T) {
	testCases := []struct {
		name string
		in   models.ListPromptsParams
		want models.ListPromptsParams
	}{
		{"defaults", models.ListPromptsParams{}, models.ListPromptsParams{Limit: 100, Sort: "updated_at", Order: "desc"}},
		{"valid", models.ListPromptsParams{Limit: 5, Offset: 10, Sort: "title", Order: "asc"}, models.ListPromptsParams{Limit: 5, Offset: 10, Sort: "title", Order: "asc"}},
		{"unknown sort falls back", models.ListPromptsParams{Sort: "id; DROP TABLE prompts", Order: "sideways"}, models.ListPromptsParams{Limit: 100, Sort: "updated_at", Order: "desc"}},
		{"case insensitive", models.ListPromptsParams{Sort: "CREATED_AT", Order: "ASC"}, models.ListPromptsParams{Limit: 100, Sort: "created_at", Order: "asc"}},
		{"negative offset", models.ListPromptsParams{Offset: -3}, models.ListPromptsParams{Limit: 100, Sort: "updated_at", Order: "desc"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeList(tc.in))
		})
	}
}

func TestNormalizeSearch(t *testing.T) {
	p := NormalizeSearch(models.SearchPromptsParams{Query: "  ", Mode: "regex"})
	assert.False(t, p.HasCriteria())
	assert.Equal(t, models.SearchContains, p.Mode)
	assert.Equal(t, 100, p.Limit)

	p = NormalizeSearch(models.SearchPromptsParams{Tag: " go ", Mode: models.SearchFullText})
	assert.True(t, p.HasCriteria())
	assert.Equal(t, "go", p.Tag)
	assert.Equal(t, models.SearchFullText, p.Mode)
}

func TestNextDisplayOrder(t *testing.T) {
	assert.Equal(t, 0, NextDisplayOrder(0, false))
	assert.Equal(t, 4, NextDisplayOrder(3, true))
	assert.Equal(t, 0, NextDisplayOrder(-1, true))
}
