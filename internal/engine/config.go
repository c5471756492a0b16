package engine

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	LLMProvider        string // "gemini" or "openai"
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string // OpenAI-compatible endpoint, unused by the gemini provider
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMThinkingBudget  int
	LLMMaxRetries      int // 0 = fire once
	LLMRatePerMinute   int // 0 = unlimited

	AnalysisTimeout time.Duration
	ReportLang      string // prompt and label locale: "th" or "en"
	PromptFile      string // optional YAML override of the embedded prompt

	FetchTimeout    time.Duration
	OEmbedEnabled   bool
	CaptionsEnabled bool
	CaptionLangs    []string // preferred caption languages, in order
	CaptionMaxRunes int      // excerpt length handed to the prompt

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient *http.Client
	Provider   Provider // nil = analysis disabled
}

// DefaultAnalysisTimeout bounds one outbound analysis when unset.
const DefaultAnalysisTimeout = 180 * time.Second

var cfg Config

// Cfg exposes the engine configuration for sub-packages (observe, sources).
// Always points to the current cfg value.
var Cfg = &cfg

// llmLimiter paces outbound LLM calls; nil means unlimited.
var llmLimiter *rate.Limiter

// Init initializes the engine with the given configuration.
func Init(c Config) {
	if c.ReportLang == "" {
		c.ReportLang = DefaultLang
	}
	if c.AnalysisTimeout <= 0 {
		c.AnalysisTimeout = DefaultAnalysisTimeout
	}
	// Grounded generation routinely takes a minute or more.
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.AnalysisTimeout}
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
	if c.CaptionMaxRunes <= 0 {
		c.CaptionMaxRunes = 6000
	}
	cfg = c
	Cfg = &cfg
	fetchClient.CloseIdleConnections()
	fetchClient = newFetchClient(c.FetchTimeout)

	llmLimiter = nil
	if c.LLMRatePerMinute > 0 {
		llmLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.LLMRatePerMinute)), 1)
	}
}
