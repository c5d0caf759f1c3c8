// Package variables expands {{name}} placeholders in management prompt content.
package variables

import (
	"encoding/json"
	"regexp"
	"sort"
)

// placeholderPattern matches {{name}} where name is made of word characters.
// There is no escaping and no nesting.
var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Replace substitutes every {{name}} whose name is a key of vars. Unknown
// placeholders are left untouched. Substituted values are not re-expanded.
func Replace(content string, vars map[string]string) string {
	if len(vars) == 0 {
		return content
	}
	return placeholderPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := match[2 : len(match)-2]
		if val, ok := vars[name]; ok {
			return val
		}
		return match
	})
}

// ReplaceJSON is Replace with the variables given as a serialized JSON object.
// Content is returned unchanged when raw is empty or not valid JSON; a valid
// document that is not an object counts as no variables.
func ReplaceJSON(content, raw string) string {
	if raw == "" {
		return content
	}
	vars, err := Parse(raw)
	if err != nil {
		return content
	}
	return Replace(content, vars)
}

// Parse decodes a serialized variables object. Non-string values are kept in
// their JSON text form.
func Parse(raw string) (map[string]string, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return map[string]string{}, nil
	}
	vars := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			vars[k] = val
		default:
			b, _ := json.Marshal(val)
			vars[k] = string(b)
		}
	}
	return vars, nil
}

// Extract returns placeholder names in order of appearance, duplicates included.
func Extract(content string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(content, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Unique returns the distinct placeholder names of content, sorted.
func Unique(content string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range Extract(content) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Missing returns the sorted placeholder names of content that vars does not cover.
func Missing(content string, vars map[string]string) []string {
	var missing []string
	for _, name := range Unique(content) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Merge overlays the given maps left to right into a new map.
func Merge(layers ...map[string]string) map[string]string {
	out := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}
