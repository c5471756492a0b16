package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API through the official genai SDK with
// native structured output and Google Search grounding.
type GeminiProvider struct {
	model          string
	temperature    float32
	maxTokens      int32
	thinkingBudget int32

	mu      sync.Mutex
	keys    []string
	next    int // index of the key in use
	clients map[string]*genai.Client
}

// NewGeminiProvider builds a provider from the engine configuration.
// Fallback keys are rotated in when the active key hits its quota.
func NewGeminiProvider(c Config) (*GeminiProvider, error) {
	keys := make([]string, 0, 1+len(c.LLMAPIKeyFallbacks))
	if c.LLMAPIKey != "" {
		keys = append(keys, c.LLMAPIKey)
	}
	for _, k := range c.LLMAPIKeyFallbacks {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, errors.New("gemini: no API key")
	}
	return &GeminiProvider{
		model:          c.LLMModel,
		temperature:    float32(c.LLMTemperature),
		maxTokens:      int32(c.LLMMaxTokens),
		thinkingBudget: int32(c.LLMThinkingBudget),
		keys:           keys,
		clients:        make(map[string]*genai.Client, len(keys)),
	}, nil
}

func (p *GeminiProvider) Name() string  { return "gemini" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) client(ctx context.Context) (*genai.Client, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := p.keys[p.next]
	if c, ok := p.clients[key]; ok {
		return c, key, nil
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend:    genai.BackendGeminiAPI,
		APIKey:     key,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, "", fmt.Errorf("gemini: new client: %w", err)
	}
	p.clients[key] = c
	return c, key, nil
}

// rotate moves past key if it is still the active one.
func (p *GeminiProvider) rotate(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) < 2 || p.keys[p.next] != key {
		return
	}
	p.next = (p.next + 1) % len(p.keys)
	slog.Warn("gemini: api key quota exhausted, rotating", slog.Int("next_key", p.next))
}

func (p *GeminiProvider) contentConfig(req GenerateRequest) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   genaiSchema(req.Schema),
	}
	if p.temperature > 0 {
		gc.Temperature = genai.Ptr(p.temperature)
	}
	if p.maxTokens > 0 {
		gc.MaxOutputTokens = p.maxTokens
	}
	if p.thinkingBudget > 0 {
		gc.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(p.thinkingBudget)}
	}
	if req.Search {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return gc
}

func (p *GeminiProvider) Generate(ctx context.Context, req GenerateRequest) (*Completion, error) {
	attempts := len(p.keys)
	var lastErr error
	for i := 0; i < attempts; i++ {
		c, key, err := p.client(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), p.contentConfig(req))
		if err == nil {
			return &Completion{Text: resp.Text(), Sources: groundingSources(resp)}, nil
		}
		lastErr = err
		if !isQuotaError(err) {
			return nil, err
		}
		p.rotate(key)
	}
	return nil, lastErr
}

func isQuotaError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == 429
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == 429
	}
	return false
}

// groundingSources extracts web citations from the first candidate.
func groundingSources(resp *genai.GenerateContentResponse) []GroundingSource {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return nil
	}
	var out []GroundingSource
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		out = append(out, GroundingSource{Title: chunk.Web.Title, URI: chunk.Web.URI})
	}
	return FilterSources(out)
}

// genaiSchema converts the provider-neutral schema.
func genaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	gs := &genai.Schema{
		Type:     genaiType(s.Type),
		Enum:     s.Enum,
		Required: s.Required,
		Items:    genaiSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		gs.Properties = make(map[string]*genai.Schema, len(s.Properties))
		gs.PropertyOrdering = make([]string, 0, len(s.Properties))
		for i := range s.Properties {
			prop := &s.Properties[i]
			gs.Properties[prop.Name] = genaiSchema(&prop.Schema)
			gs.PropertyOrdering = append(gs.PropertyOrdering, prop.Name)
		}
	}
	return gs
}

func genaiType(t string) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "string":
		return genai.TypeString
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	}
	return genai.TypeUnspecified
}
