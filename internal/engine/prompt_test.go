package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPromptSet_Embedded(t *testing.T) {
	ps, err := LoadPromptSet("")
	require.NoError(t, err)

	assert.Positive(t, ps.Version)
	assert.Contains(t, ps.Locales, "th")
	assert.Contains(t, ps.Locales, "en")
	assert.Equal(t, "object", ps.Schema.Type)

	var names []string
	for _, p := range ps.Schema.Properties {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"overview", "events", "tableSummary", "strengths", "recommendations"}, names)
}

func TestPromptRender(t *testing.T) {
	ps, err := LoadPromptSet("")
	require.NoError(t, err)

	for _, lang := range []string{"th", "en"} {
		t.Run(lang, func(t *testing.T) {
			out, err := ps.Render(lang, PromptVars{VideoURL: "https://youtu.be/dQw4w9WgXcQ?si=abc"})
			require.NoError(t, err)
			assert.Contains(t, out, "https://youtu.be/dQw4w9WgXcQ?si=abc")
			assert.Contains(t, out, ps.NotFoundOverview(lang))
			assert.Equal(t, strings.TrimSpace(out), out)
		})
	}

	t.Run("title hint", func(t *testing.T) {
		out, err := ps.Render("en", PromptVars{VideoURL: "u", Title: "Fractions with pizza", Author: "Ms. K"})
		require.NoError(t, err)
		assert.Contains(t, out, "Fractions with pizza")
		assert.Contains(t, out, "Ms. K")
	})

	t.Run("unknown locale", func(t *testing.T) {
		_, err := ps.Render("fr", PromptVars{VideoURL: "u"})
		assert.Error(t, err)
	})
}

func TestParsePromptSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "::: nope"},
		{"no locales", "version: 1\nschema: {type: object}\n"},
		{"root not object", "version: 1\nlocales: {en: {instruction: hi}}\nschema: {type: array}\n"},
		{"empty instruction", "version: 1\nlocales: {en: {instruction: ' '}}\nschema: {type: object}\n"},
		{"bad template", "version: 1\nlocales: {en: {instruction: '{{.VideoURL'}}\nschema: {type: object}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePromptSet([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPromptSet_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.yaml")
	doc := "version: 9\nlocales:\n  en:\n    not_found_overview: gone\n    instruction: 'Review {{.VideoURL}} or say {{.NotFound}}'\nschema:\n  type: object\n  properties:\n    - {name: overview, type: string}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	ps, err := LoadPromptSet(path)
	require.NoError(t, err)
	assert.Equal(t, 9, ps.Version)

	out, err := ps.Render("en", PromptVars{VideoURL: "https://youtu.be/x"})
	require.NoError(t, err)
	assert.Equal(t, "Review https://youtu.be/x or say gone", out)

	_, err = LoadPromptSet(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSchemaJSONSchema(t *testing.T) {
	ps, err := LoadPromptSet("")
	require.NoError(t, err)

	js := ps.Schema.JSONSchema()
	assert.Equal(t, "object", js["type"])
	props, ok := js["properties"].(map[string]any)
	require.True(t, ok)
	table, ok := props["tableSummary"].(map[string]any)
	require.True(t, ok)
	items, ok := table["items"].(map[string]any)
	require.True(t, ok)
	itemProps := items["properties"].(map[string]any)
	result := itemProps["result"].(map[string]any)
	assert.Equal(t, []string{"excellent", "good", "needs-improvement"}, result["enum"])
}
