package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewGeminiProvider(t *testing.T) {
	_, err := NewGeminiProvider(Config{LLMModel: "m"})
	assert.Error(t, err)

	p, err := NewGeminiProvider(Config{
		LLMAPIKey:          "k1",
		LLMAPIKeyFallbacks: []string{"", "k2"},
		LLMModel:           "gemini-test",
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, "gemini-test", p.Model())
	assert.Equal(t, []string{"k1", "k2"}, p.keys)
}

func TestGeminiRotate(t *testing.T) {
	p, err := NewGeminiProvider(Config{LLMAPIKey: "k1", LLMAPIKeyFallbacks: []string{"k2"}})
	require.NoError(t, err)

	p.rotate("k1")
	assert.Equal(t, 1, p.next)

	// A stale key does not rotate again.
	p.rotate("k1")
	assert.Equal(t, 1, p.next)

	p.rotate("k2")
	assert.Equal(t, 0, p.next)
}

func TestGenaiSchema(t *testing.T) {
	ps, err := LoadPromptSet("")
	require.NoError(t, err)

	gs := genaiSchema(&ps.Schema)
	require.NotNil(t, gs)
	assert.Equal(t, genai.TypeObject, gs.Type)
	assert.Equal(t, []string{"overview", "events", "tableSummary", "strengths", "recommendations"}, gs.PropertyOrdering)
	assert.Equal(t, genai.TypeString, gs.Properties["overview"].Type)

	table := gs.Properties["tableSummary"]
	require.NotNil(t, table.Items)
	assert.Equal(t, genai.TypeArray, table.Type)
	assert.Equal(t, []string{"item", "observation", "result"}, table.Items.PropertyOrdering)
	assert.Equal(t, []string{"excellent", "good", "needs-improvement"}, table.Items.Properties["result"].Enum)

	assert.Nil(t, genaiSchema(nil))
	assert.Equal(t, genai.TypeUnspecified, genaiType("tuple"))
}

func TestGroundingSources(t *testing.T) {
	assert.Nil(t, groundingSources(nil))
	assert.Nil(t, groundingSources(&genai.GenerateContentResponse{}))
	assert.Nil(t, groundingSources(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{Web: &genai.GroundingChunkWeb{Title: "Lesson page", URI: "https://school.example/lesson"}},
					nil,
					{},
					{Web: &genai.GroundingChunkWeb{Title: "No link"}},
				},
			},
		}},
	}
	got := groundingSources(resp)
	assert.Equal(t, []GroundingSource{{Title: "Lesson page", URI: "https://school.example/lesson"}}, got)
}

func TestContentConfig(t *testing.T) {
	p, err := NewGeminiProvider(Config{
		LLMAPIKey:         "k",
		LLMTemperature:    0.2,
		LLMMaxTokens:      2048,
		LLMThinkingBudget: 512,
	})
	require.NoError(t, err)

	gc := p.contentConfig(GenerateRequest{Prompt: "x", Search: true})
	assert.Equal(t, "application/json", gc.ResponseMIMEType)
	assert.Nil(t, gc.ResponseSchema)
	require.NotNil(t, gc.Temperature)
	assert.InDelta(t, 0.2, *gc.Temperature, 1e-6)
	assert.Equal(t, int32(2048), gc.MaxOutputTokens)
	require.NotNil(t, gc.ThinkingConfig)
	assert.Equal(t, int32(512), *gc.ThinkingConfig.ThinkingBudget)
	require.Len(t, gc.Tools, 1)
	assert.NotNil(t, gc.Tools[0].GoogleSearch)

	plain, err := NewGeminiProvider(Config{LLMAPIKey: "k"})
	require.NoError(t, err)
	gc = plain.contentConfig(GenerateRequest{Prompt: "x"})
	assert.Nil(t, gc.Temperature)
	assert.Nil(t, gc.ThinkingConfig)
	assert.Empty(t, gc.Tools)
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"quota", &genai.APIError{Code: 429}, true},
		{"wrapped quota", fmt.Errorf("call: %w", &genai.APIError{Code: 429}), true},
		{"server error", &genai.APIError{Code: 500}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isQuotaError(tt.err))
		})
	}
}
