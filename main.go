// go_observe builds teaching-video supervision reports from YouTube links.
//
// Serves a small web UI and JSON API on HTTP_PORT and, unless MCP_ENABLED is
// false, two MCP tools (youtube_video_resolve, teaching_video_analyze) on MCP_PORT.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/engine/observe"
	"github.com/anatolykoptev/go_observe/internal/toolserver"
	"github.com/anatolykoptev/go_observe/internal/webui"
)

var (
	version  = "dev"
	mcpPort  = env.Str("MCP_PORT", "8891")
	httpPort = env.Str("HTTP_PORT", "8080")
)

func main() {
	initEngine()

	if err := observe.LoadPrompts(); err != nil {
		slog.Error("prompt load failed", slog.Any("error", err))
		os.Exit(1)
	}

	web := webui.New(webui.Config{
		SessionTTL:       env.Duration("SESSION_TTL", time.Hour),
		AnalyzeRateLimit: env.Int("ANALYZE_RATE_LIMIT", 10),
		Lang:             engine.Cfg.ReportLang,
	})
	defer web.Close()

	httpSrv := &http.Server{
		Addr:              ":" + httpPort,
		Handler:           web,
		ReadHeaderTimeout: 10 * time.Second,
		// Analyses block the request until the provider answers.
		WriteTimeout: engine.Cfg.AnalysisTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		slog.Info("webui listening", slog.String("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("webui server failed", slog.Any("error", err))
		}
	}()
	defer shutdown(httpSrv)

	if !envBool("MCP_ENABLED", true) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()
		slog.Info("shutting down")
		return
	}

	slog.Info("starting go_observe", slog.String("port", mcpPort))

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_observe",
		Version: version,
	}, nil)

	toolserver.RegisterTools(server)
	slog.Info("tools registered", slog.Int("count", 2))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_observe",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: engine.Cfg.AnalysisTimeout + 30*time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("webui shutdown", slog.Any("error", err))
	}
	engine.CloseCache()
}

func envBool(key string, def bool) bool {
	v := env.Str(key, strconv.FormatBool(def))
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean env var, using default", slog.String("key", key), slog.String("value", v))
		return def
	}
	return b
}

func initEngine() {
	c := engine.Config{
		LLMProvider:          strings.ToLower(env.Str("LLM_PROVIDER", "gemini")),
		LLMAPIKey:            env.Str("LLM_API_KEY", env.Str("GEMINI_API_KEY", "")),
		LLMAPIKeyFallbacks:   env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:           env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:             env.Str("LLM_MODEL", "gemini-3-pro-preview"),
		LLMTemperature:       env.Float("LLM_TEMPERATURE", 0),
		LLMMaxTokens:         env.Int("LLM_MAX_TOKENS", 16384),
		LLMThinkingBudget:    env.Int("LLM_THINKING_BUDGET", 4000),
		LLMMaxRetries:        env.Int("LLM_MAX_RETRIES", 0),
		LLMRatePerMinute:     env.Int("LLM_RATE_PER_MINUTE", 30),
		AnalysisTimeout:      env.Duration("ANALYSIS_TIMEOUT", engine.DefaultAnalysisTimeout),
		ReportLang:           strings.ToLower(env.Str("REPORT_LANG", engine.DefaultLang)),
		PromptFile:           env.Str("PROMPT_FILE", ""),
		FetchTimeout:         env.Duration("FETCH_TIMEOUT", 10*time.Second),
		OEmbedEnabled:        envBool("OEMBED_ENABLED", true),
		CaptionsEnabled:      envBool("CAPTIONS_ENABLED", true),
		CaptionLangs:         env.List("CAPTION_LANGS", "th,en"),
		CaptionMaxRunes:      env.Int("CAPTION_MAX_RUNES", 6000),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
	}
	c.HTTPClient = &http.Client{
		Timeout: c.AnalysisTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     60 * time.Second,
		},
	}

	p, err := newProvider(c)
	if err != nil {
		slog.Warn("analysis provider unavailable, analyze requests will fail", slog.Any("error", err))
	} else {
		c.Provider = p
		slog.Info("analysis provider ready", slog.String("provider", p.Name()), slog.String("model", p.Model()))
	}

	engine.Init(c)

	cacheTTL := env.Duration("CACHE_TTL", 24*time.Hour)
	engine.InitCache(env.Str("REDIS_URL", ""), cacheTTL, c.CacheMaxEntries, c.CacheCleanupInterval)
}

func newProvider(c engine.Config) (engine.Provider, error) {
	switch c.LLMProvider {
	case "", "gemini":
		p, err := engine.NewGeminiProvider(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openai":
		if c.LLMAPIKey == "" {
			return nil, errors.New("openai: no API key")
		}
		return engine.NewChatProvider(c), nil
	}
	return nil, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
}
