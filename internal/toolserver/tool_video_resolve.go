package toolserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_observe/internal/engine"
	"github.com/anatolykoptev/go_observe/internal/video"
)

func registerVideoResolve(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_video_resolve",
		Description: "Extract the canonical 11-character YouTube video id from a link (watch, youtu.be, embed, shorts, live, legacy /v/ and per-user links). Returns found=false for anything that is not a YouTube video link. No network access.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, handleVideoResolve)
}

func handleVideoResolve(_ context.Context, _ *mcp.CallToolRequest, input engine.VideoResolveInput) (*mcp.CallToolResult, engine.VideoResolveOutput, error) {
	ref, ok := video.Resolve(input.URL)
	engine.IncrResolve(ok)
	if !ok {
		return nil, engine.VideoResolveOutput{Found: false}, nil
	}
	return nil, engine.VideoResolveOutput{
		Found:    true,
		VideoID:  ref.ID(),
		WatchURL: ref.WatchURL(),
		EmbedURL: ref.EmbedURL(),
	}, nil
}
