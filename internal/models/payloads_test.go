package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePayloadNulls(t *testing.T) {
	var p UpdatePromptPayload
	require.NoError(t, json.Unmarshal([]byte(`{"title": null, "description": null, "content": "x"}`), &p))
	assert.True(t, p.Null("title"))
	assert.Nil(t, p.Title)
	require.NotNil(t, p.Description)
	assert.Equal(t, "", *p.Description)
	assert.Equal(t, "x", *p.Content)
	assert.Nil(t, p.Tags)
	assert.False(t, p.Null("tags"))

	var absent UpdatePromptPayload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	assert.True(t, absent.IsEmpty())

	var g UpdateGroupPayload
	require.NoError(t, json.Unmarshal([]byte(`{"global_variables": null}`), &g))
	assert.NotNil(t, g.GlobalVariables)
	assert.False(t, g.IsEmpty())

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"description": "", "content": "x"}`, string(out))
}
