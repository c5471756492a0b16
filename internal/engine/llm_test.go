package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/genai"
)

type stubProvider struct {
	name    string
	results []error // one entry per call; nil means success
	calls   int
	lastReq GenerateRequest
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) Generate(_ context.Context, req GenerateRequest) (*Completion, error) {
	s.lastReq = req
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return nil, s.results[i]
	}
	return &Completion{Text: "```json\n{\"overview\":\"ok\"}\n```", Sources: []GroundingSource{{URI: "https://a"}}}, nil
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no fence", `  {"a":1}  `, `{"a":1}`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCallLLM_NoProvider(t *testing.T) {
	Init(Config{})
	_, err := CallLLM(context.Background(), GenerateRequest{Prompt: "x"})
	if !errors.Is(err, ErrNoProvider) {
		t.Fatalf("err = %v, want ErrNoProvider", err)
	}
}

func TestCallLLM_Success(t *testing.T) {
	p := &stubProvider{name: "stub-ok"}
	Init(Config{Provider: p})

	out, err := CallLLM(context.Background(), GenerateRequest{Prompt: "analyze", Search: true})
	if err != nil {
		t.Fatalf("CallLLM: %v", err)
	}
	if out.Text != `{"overview":"ok"}` {
		t.Errorf("Text = %q, fences not stripped", out.Text)
	}
	if len(out.Sources) != 1 {
		t.Errorf("Sources = %+v", out.Sources)
	}
	if !p.lastReq.Search || p.lastReq.Prompt != "analyze" {
		t.Errorf("request not forwarded: %+v", p.lastReq)
	}
	if got := testutil.ToFloat64(llmCalls.WithLabelValues("stub-ok")); got != 1 {
		t.Errorf("llm calls metric = %v, want 1", got)
	}
}

func TestCallLLM_FiresOnceByDefault(t *testing.T) {
	p := &stubProvider{name: "stub-once", results: []error{&genai.APIError{Code: 503}}}
	Init(Config{Provider: p})

	_, err := CallLLM(context.Background(), GenerateRequest{Prompt: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "llm stub-once:") {
		t.Errorf("error not wrapped with provider: %v", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
	if got := testutil.ToFloat64(llmErrors.WithLabelValues("stub-once")); got != 1 {
		t.Errorf("llm errors metric = %v, want 1", got)
	}
}

func TestCallLLM_RetriesWhenConfigured(t *testing.T) {
	prev := DefaultRetryConfig
	DefaultRetryConfig.InitialWait = time.Millisecond
	DefaultRetryConfig.MaxWait = 5 * time.Millisecond
	t.Cleanup(func() { DefaultRetryConfig = prev })

	p := &stubProvider{name: "stub-retry", results: []error{&genai.APIError{Code: 503}, &genai.APIError{Code: 429}}}
	Init(Config{Provider: p, LLMMaxRetries: 2})

	if _, err := CallLLM(context.Background(), GenerateRequest{Prompt: "x"}); err != nil {
		t.Fatalf("CallLLM: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}
}

func TestCallLLM_NonRetryableStops(t *testing.T) {
	p := &stubProvider{name: "stub-perm", results: []error{&genai.APIError{Code: 400}}}
	Init(Config{Provider: p, LLMMaxRetries: 3})

	if _, err := CallLLM(context.Background(), GenerateRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestCallLLM_RateLimited(t *testing.T) {
	p := &stubProvider{name: "stub-rate"}
	Init(Config{Provider: p, LLMRatePerMinute: 1})

	if _, err := CallLLM(context.Background(), GenerateRequest{Prompt: "x"}); err != nil {
		t.Fatalf("first call: %v", err)
	}
	// The bucket is empty; the next call waits past this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := CallLLM(ctx, GenerateRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected the limiter to refuse within the deadline")
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestSchemaInstruction(t *testing.T) {
	ps, err := LoadPromptSet("")
	if err != nil {
		t.Fatalf("LoadPromptSet: %v", err)
	}
	out := schemaInstruction("PROMPT", &ps.Schema)
	if !strings.HasPrefix(out, "PROMPT") {
		t.Error("prompt not preserved")
	}
	for _, want := range []string{`"tableSummary"`, `"needs-improvement"`, "Respond with valid JSON only"} {
		if !strings.Contains(out, want) {
			t.Errorf("schema instruction missing %s", want)
		}
	}
	if got := schemaInstruction("PROMPT", nil); got != "PROMPT" {
		t.Errorf("nil schema changed prompt: %q", got)
	}
}
