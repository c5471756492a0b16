package toolserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/engine/observe"
	"github.com/anatolykoptev/go_observe/internal/report"
	"github.com/anatolykoptev/go_observe/internal/video"
)

// analyzeFn is swapped in tests.
var analyzeFn = observe.AnalyzeTeachingVideo

func registerTeachingVideoAnalyze(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "teaching_video_analyze",
		Description: "Produce an educational-supervision report for a YouTube teaching video: overview, nine observed event categories (teacher, students, active learning, questioning, relationships, engagement, technology, assessment, conclusion), a rated summary table, strengths, recommendations and web sources. Returns structured JSON plus a Markdown rendering. Results are cached per video.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleTeachingVideoAnalyze)
}

func handleTeachingVideoAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input engine.TeachingVideoAnalyzeInput) (*mcp.CallToolResult, engine.TeachingVideoAnalyzeOutput, error) {
	if strings.TrimSpace(input.URL) == "" {
		return nil, engine.TeachingVideoAnalyzeOutput{}, fmt.Errorf("url is required")
	}
	format := strings.ToLower(strings.TrimSpace(input.Format))
	switch format {
	case "", "markdown", "md", "none":
	default:
		return nil, engine.TeachingVideoAnalyzeOutput{}, fmt.Errorf("unknown format %q (use markdown or none)", input.Format)
	}

	a, err := analyzeFn(ctx, input.URL)
	if err != nil {
		if errors.Is(err, video.ErrInvalidReference) {
			return nil, engine.TeachingVideoAnalyzeOutput{}, fmt.Errorf("not a YouTube video link: %q", input.URL)
		}
		slog.Warn("teaching_video_analyze: failed", slog.String("url", input.URL), slog.Any("error", err))
		return nil, engine.TeachingVideoAnalyzeOutput{}, fmt.Errorf("analysis failed: %w", err)
	}

	out := engine.TeachingVideoAnalyzeOutput{Analysis: *a}
	if format != "none" {
		md, err := report.Markdown(a)
		if err != nil {
			slog.Warn("teaching_video_analyze: markdown render failed", slog.Any("error", err))
		} else {
			out.Markdown = md
		}
	}
	return nil, out, nil
}
