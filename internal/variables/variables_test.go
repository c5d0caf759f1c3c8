package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplace(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		vars    map[string]string
		want    string
	}{
		{"single", "Hello {{name}}", map[string]string{"name": "World"}, "Hello World"},
		{"missing key left intact", "Hello {{missing}}", map[string]string{}, "Hello {{missing}}"},
		{"nil map", "Hello {{name}}", nil, "Hello {{name}}"},
		{"repeated", "{{a}}-{{a}}", map[string]string{"a": "x"}, "x-x"},
		{"empty value", "[{{a}}]", map[string]string{"a": ""}, "[]"},
		{"spaces not a token", "{{ name }}", map[string]string{"name": "x"}, "{{ name }}"},
		{"hyphen not a word char", "{{first-name}}", map[string]string{"first-name": "x"}, "{{first-name}}"},
		{"digits and underscore", "{{v_2}}", map[string]string{"v_2": "ok"}, "ok"},
		{"single pass", "{{a}}", map[string]string{"a": "{{b}}", "b": "no"}, "{{b}}"},
		{"triple braces", "{{{a}}}", map[string]string{"a": "x"}, "{x}"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Replace(tc.content, tc.vars))
		})
	}
}

func TestReplaceJSON(t *testing.T) {
	assert.Equal(t, "X", ReplaceJSON("X", "not valid json"))
	assert.Equal(t, "Hi {{n}}", ReplaceJSON("Hi {{n}}", ""))
	assert.Equal(t, "Hi Bob", ReplaceJSON("Hi {{n}}", `{"n":"Bob"}`))
	assert.Equal(t, "Hi {{n}}", ReplaceJSON("Hi {{n}}", `["n"]`))
	assert.Equal(t, "n=3 ok=true", ReplaceJSON("n={{n}} ok={{ok}}", `{"n":3,"ok":true}`))
}

func TestParse(t *testing.T) {
	vars, err := Parse(`{"a":"1","b":null}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "null"}, vars)

	vars, err = Parse(`42`)
	require.NoError(t, err)
	assert.Empty(t, vars)

	_, err = Parse(`{`)
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	content := "Dear {{name}}, your {{item}} ships to {{name}}. {{ bad }}"

	assert.Equal(t, []string{"name", "item", "name"}, Extract(content))
	assert.Equal(t, []string{"item", "name"}, Unique(content))
	assert.Empty(t, Extract("no placeholders"))
}

func TestMissingAndMerge(t *testing.T) {
	group := map[string]string{"tone": "formal", "lang": "en"}
	call := map[string]string{"lang": "de"}

	merged := Merge(group, call)
	assert.Equal(t, "de", merged["lang"])
	assert.Equal(t, "formal", merged["tone"])

	assert.Equal(t, []string{"topic"}, Missing("{{tone}} {{topic}} {{lang}}", merged))
	assert.Nil(t, Missing("{{tone}}", merged))
}
