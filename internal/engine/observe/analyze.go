// Package observe runs teaching-video analyses: resolve the link, consult the
// cache, ask the configured provider and validate the returned report.
package observe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/engine/sources"
	"github.com/anatolykoptev/go_observe/internal/toolutil"
	"github.com/anatolykoptev/go_observe/internal/video"
)

var (
	// ErrAnalysisFailed wraps every provider-side failure.
	ErrAnalysisFailed = errors.New("observe: analysis failed")
	// ErrMalformedReport means the provider answered with an unusable document.
	ErrMalformedReport = errors.New("observe: malformed report")
)

var (
	promptMu sync.RWMutex
	prompts  *engine.PromptSet

	inflight singleflight.Group

	// slowGenerate is the provider latency above which a call is logged.
	slowGenerate = 90 * time.Second
)

// LoadPrompts (re)reads the prompt document named by the engine config,
// or the embedded default.
func LoadPrompts() error {
	ps, err := engine.LoadPromptSet(engine.Cfg.PromptFile)
	if err != nil {
		return err
	}
	if _, ok := ps.Locales[engine.NormLang("")]; !ok {
		return fmt.Errorf("prompt: no %q locale in %s", engine.NormLang(""), promptSource())
	}
	promptMu.Lock()
	prompts = ps
	promptMu.Unlock()
	slog.Info("observe: prompts loaded", slog.Int("version", ps.Version), slog.String("source", promptSource()))
	return nil
}

func promptSource() string {
	if engine.Cfg.PromptFile == "" {
		return "embedded"
	}
	return engine.Cfg.PromptFile
}

func promptSet() (*engine.PromptSet, error) {
	promptMu.RLock()
	ps := prompts
	promptMu.RUnlock()
	if ps != nil {
		return ps, nil
	}
	if err := LoadPrompts(); err != nil {
		return nil, err
	}
	promptMu.RLock()
	defer promptMu.RUnlock()
	return prompts, nil
}

// analysisKey identifies one analysis; a new prompt version or model
// invalidates old entries.
func analysisKey(ref video.Reference, lang string, p engine.Provider, version int) string {
	return engine.CacheKey("analysis", ref.ID(), lang, p.Name(), p.Model(), strconv.Itoa(version))
}

// AnalyzeTeachingVideo resolves rawURL and returns its supervision report.
// Unresolvable input fails with video.ErrInvalidReference before any outbound
// call. Identical concurrent requests share one provider call; each caller
// may stop waiting through its own ctx.
func AnalyzeTeachingVideo(ctx context.Context, rawURL string) (*engine.Analysis, error) {
	input := strings.TrimSpace(rawURL)
	ref, ok := video.Resolve(input)
	engine.IncrResolve(ok)
	if !ok {
		engine.IncrAnalysis("invalid")
		return nil, video.ErrInvalidReference
	}

	p := engine.Cfg.Provider
	if p == nil {
		engine.IncrAnalysis("failed")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, engine.ErrNoProvider)
	}
	ps, err := promptSet()
	if err != nil {
		engine.IncrAnalysis("failed")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	lang := engine.NormLang("")
	key := analysisKey(ref, lang, p, ps.Version)

	if a, ok := toolutil.CacheLoadJSON[engine.Analysis](ctx, key); ok {
		engine.IncrAnalysis("cached")
		a.Cached = true
		return &a, nil
	}

	ch := inflight.DoChan(key, func() (any, error) {
		timeout := engine.Cfg.AnalysisTimeout
		if timeout <= 0 {
			timeout = engine.DefaultAnalysisTimeout
		}
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return run(runCtx, input, ref, lang, p, ps, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		a := *res.Val.(*engine.Analysis)
		if res.Shared {
			slog.Debug("observe: shared in-flight analysis", slog.String("video_id", ref.ID()))
		}
		return &a, nil
	}
}

func run(ctx context.Context, input string, ref video.Reference, lang string, p engine.Provider, ps *engine.PromptSet, key string) (*engine.Analysis, error) {
	engine.TrackInFlight(1)
	defer engine.TrackInFlight(-1)
	start := time.Now()

	vars := engine.PromptVars{VideoURL: input}
	var meta *engine.VideoMeta
	if engine.Cfg.OEmbedEnabled {
		m, err := sources.FetchVideoMeta(ctx, ref)
		if err != nil {
			slog.Warn("observe: video metadata unavailable", slog.String("video_id", ref.ID()), slog.Any("error", err))
		} else {
			meta = m
			vars.Title = m.Title
			vars.Author = m.AuthorName
		}
	}
	if engine.Cfg.CaptionsEnabled {
		vars.Captions = captionExcerpt(ctx, ref, lang)
	}

	prompt, err := ps.Render(lang, vars)
	if err != nil {
		engine.IncrAnalysis("failed")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	var comp *engine.Completion
	err = engine.TrackOperation(ctx, "observe.generate", slowGenerate, func(ctx context.Context) error {
		var gerr error
		comp, gerr = engine.CallLLM(ctx, engine.GenerateRequest{
			Prompt: prompt,
			Schema: &ps.Schema,
			Search: true,
		})
		return gerr
	})
	if err != nil {
		engine.IncrAnalysis("failed")
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}

	report, err := ParseObservation(comp.Text)
	if err != nil {
		engine.IncrAnalysis("malformed")
		slog.Warn("observe: unusable report",
			slog.String("video_id", ref.ID()),
			slog.String("provider", p.Name()),
			slog.String("response", engine.TruncateRunes(comp.Text, 300, "…")),
			slog.Any("error", err),
		)
		return nil, err
	}
	report.Sources = mergeSources(report.Sources, comp.Sources)

	a := &engine.Analysis{
		VideoID:     ref.ID(),
		VideoURL:    ref.WatchURL(),
		Video:       meta,
		Report:      report,
		Lang:        lang,
		Provider:    p.Name(),
		Model:       p.Model(),
		GeneratedAt: time.Now().UTC(),
	}

	// A not-found answer may change once the video becomes public.
	if notFound := ps.NotFoundOverview(lang); notFound != "" && strings.TrimSpace(report.Overview) == strings.TrimSpace(notFound) {
		slog.Info("observe: provider could not find video", slog.String("video_id", ref.ID()))
	} else {
		toolutil.CacheStoreJSON(ctx, key, a)
		toolutil.CacheStoreJSON(ctx, toolutil.ReportKey(ref.ID(), lang), a)
	}

	engine.IncrAnalysis("ok")
	slog.Info("observe: analysis done",
		slog.String("video_id", ref.ID()),
		slog.String("provider", p.Name()),
		slog.Int("rows", len(report.TableSummary)),
		slog.Int("sources", len(report.Sources)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return a, nil
}

// captionExcerpt returns the head of the video's captions, or "" when none
// can be fetched. The report locale is tried before the configured languages.
func captionExcerpt(ctx context.Context, ref video.Reference, lang string) string {
	langs := append([]string{lang}, engine.Cfg.CaptionLangs...)
	text, err := sources.FetchCaptions(ctx, ref, langs)
	if err != nil {
		slog.Debug("observe: captions unavailable", slog.String("video_id", ref.ID()), slog.Any("error", err))
		return ""
	}
	return engine.TruncateAtWord(text, engine.Cfg.CaptionMaxRunes)
}

// Cached returns the latest stored analysis of videoID, if any.
func Cached(ctx context.Context, videoID string) (*engine.Analysis, bool) {
	ref, err := video.ParseID(videoID)
	if err != nil {
		return nil, false
	}
	a, ok := toolutil.CacheLoadJSON[engine.Analysis](ctx, toolutil.ReportKey(ref.ID(), engine.NormLang("")))
	if !ok {
		return nil, false
	}
	a.Cached = true
	return &a, true
}
