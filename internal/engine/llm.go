package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/llm"
)

// GenerateRequest is one structured-output call to the analysis provider.
type GenerateRequest struct {
	Prompt string
	Schema *Schema
	Search bool // ask the provider to ground the answer with web search
}

// Completion is the provider's answer: raw JSON text plus any citations.
type Completion struct {
	Text    string
	Sources []GroundingSource
}

// Provider is the Analysis Requestor contract. Implementations delegate the
// wire protocol to the vendor SDK.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req GenerateRequest) (*Completion, error)
}

// ErrNoProvider is returned when no provider is configured.
var ErrNoProvider = errors.New("llm: no provider configured")

// stripFences removes markdown code fences from LLM output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// CallLLM sends req to the configured provider, honoring the outbound rate
// limit and the configured retry budget. The returned text has fences removed.
func CallLLM(ctx context.Context, req GenerateRequest) (*Completion, error) {
	p := cfg.Provider
	if p == nil {
		return nil, ErrNoProvider
	}

	rc := DefaultRetryConfig
	rc.MaxRetries = cfg.LLMMaxRetries

	start := time.Now()
	out, err := RetryDo(ctx, rc, func() (*Completion, error) {
		if llmLimiter != nil {
			if err := llmLimiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		llmCalls.WithLabelValues(p.Name()).Inc()
		c, err := p.Generate(ctx, req)
		if err != nil {
			llmErrors.WithLabelValues(p.Name()).Inc()
			return nil, err
		}
		return c, nil
	})
	llmLatency.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("llm: generate failed",
			slog.String("provider", p.Name()),
			slog.String("model", p.Model()),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("llm %s: %w", p.Name(), err)
	}
	out.Text = stripFences(out.Text)
	return out, nil
}

// --- OpenAI-compatible provider ---

// ChatProvider talks to any OpenAI-compatible endpoint through go-kit/llm.
// It has no web-search grounding, so Completion.Sources is always empty.
type ChatProvider struct {
	client *llm.Client
	model  string
}

// NewChatProvider builds a provider from the engine configuration.
func NewChatProvider(c Config) *ChatProvider {
	client := llm.NewClient(c.LLMAPIBase, c.LLMAPIKey, c.LLMModel,
		llm.WithFallbackKeys(c.LLMAPIKeyFallbacks),
		llm.WithMaxTokens(c.LLMMaxTokens),
		llm.WithTemperature(c.LLMTemperature),
		llm.WithHTTPClient(c.HTTPClient),
	)
	return &ChatProvider{client: client, model: c.LLMModel}
}

func (p *ChatProvider) Name() string  { return "openai" }
func (p *ChatProvider) Model() string { return p.model }

func (p *ChatProvider) Generate(ctx context.Context, req GenerateRequest) (*Completion, error) {
	raw, err := p.client.Complete(ctx, "", schemaInstruction(req.Prompt, req.Schema))
	if err != nil {
		return nil, err
	}
	return &Completion{Text: raw}, nil
}
