package engine

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// LLM prompt templates and the response schema live in prompts/ as data, with no logic.

//go:embed prompts/observation.yaml
var promptFS embed.FS

// DefaultLang is the locale of the original prompt wording.
const DefaultLang = "th"

// Schema is the provider-neutral response schema. Properties keep their
// declaration order so providers that honor ordering see the report layout.
type Schema struct {
	Type       string     `yaml:"type"`
	Properties []Property `yaml:"properties,omitempty"`
	Items      *Schema    `yaml:"items,omitempty"`
	Enum       []string   `yaml:"enum,omitempty"`
	Required   []string   `yaml:"required,omitempty"`
}

type Property struct {
	Name   string `yaml:"name"`
	Schema `yaml:",inline"`
}

// JSONSchema renders s as a JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	out := map[string]any{"type": s.Type}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for i := range s.Properties {
			props[s.Properties[i].Name] = s.Properties[i].Schema.JSONSchema()
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}

type promptLocale struct {
	Instruction      string `yaml:"instruction"`
	NotFoundOverview string `yaml:"not_found_overview"`

	tmpl *template.Template
}

// PromptSet is a parsed prompt document.
type PromptSet struct {
	Version int                      `yaml:"version"`
	Locales map[string]*promptLocale `yaml:"locales"`
	Schema  Schema                   `yaml:"schema"`
}

// PromptVars are the values substituted into an instruction template.
type PromptVars struct {
	VideoURL string
	Title    string
	Author   string
	Captions string // caption excerpt, may be empty
	NotFound string
}

// ParsePromptSet decodes and compiles a prompt document.
func ParsePromptSet(data []byte) (*PromptSet, error) {
	var ps PromptSet
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("prompt: decode: %w", err)
	}
	if len(ps.Locales) == 0 {
		return nil, fmt.Errorf("prompt: no locales")
	}
	if ps.Schema.Type != "object" {
		return nil, fmt.Errorf("prompt: schema root must be an object, got %q", ps.Schema.Type)
	}
	for lang, loc := range ps.Locales {
		if strings.TrimSpace(loc.Instruction) == "" {
			return nil, fmt.Errorf("prompt: locale %s: empty instruction", lang)
		}
		t, err := template.New(lang).Option("missingkey=error").Parse(loc.Instruction)
		if err != nil {
			return nil, fmt.Errorf("prompt: locale %s: %w", lang, err)
		}
		loc.tmpl = t
	}
	return &ps, nil
}

// LoadPromptSet reads path, or the embedded document when path is empty.
func LoadPromptSet(path string) (*PromptSet, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = promptFS.ReadFile("prompts/observation.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("prompt: read: %w", err)
	}
	return ParsePromptSet(data)
}

// Render fills the instruction template for lang.
func (ps *PromptSet) Render(lang string, vars PromptVars) (string, error) {
	loc, ok := ps.Locales[lang]
	if !ok {
		return "", fmt.Errorf("prompt: unknown locale %q", lang)
	}
	if vars.NotFound == "" {
		vars.NotFound = loc.NotFoundOverview
	}
	var buf bytes.Buffer
	if err := loc.tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("prompt: render %s: %w", lang, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// NotFoundOverview is the overview the model is told to return for unknown videos.
func (ps *PromptSet) NotFoundOverview(lang string) string {
	if loc, ok := ps.Locales[lang]; ok {
		return loc.NotFoundOverview
	}
	return ""
}

// schemaInstruction appends the schema as JSON for providers without native
// structured output.
func schemaInstruction(prompt string, s *Schema) string {
	if s == nil {
		return prompt
	}
	b, err := json.MarshalIndent(s.JSONSchema(), "", "  ")
	if err != nil {
		return prompt
	}
	return prompt + "\n\nJSON Schema:\n" + string(b) +
		"\n\nRespond with valid JSON only (no markdown, no ```json block)."
}
